package nlparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var (
	dmyPattern  = regexp.MustCompile(`^(\d{1,2})([/-])(\d{1,2})([/-])(\d{4})$`)
	isoPattern  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	timePattern = regexp.MustCompile(`^(\d{1,2})(?:\s*(:|h|gio)\s*(\d{2}|ruoi)?)?(?:\s*phut)?(?:\s+|$)?(.*)$`)
)

// Resolver turns date and time phrases into instants in one location,
// relative to the clock it is given.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{loc: loc, now: now}
}

func parseErr(format string, args ...any) error {
	return apperr.New(apperr.KindParse, format, args...)
}

// Resolve combines a date phrase and a time phrase into one instant.
func (r *Resolver) Resolve(datePhrase, timePhrase string) (time.Time, error) {
	date, err := r.ResolveDate(datePhrase)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := r.ResolveTime(timePhrase)
	if err != nil {
		return time.Time{}, err
	}
	return tod.On(date, r.loc), nil
}

// ResolveDate returns midnight of the resolved civil date in the resolver's location.
func (r *Resolver) ResolveDate(phrase string) (time.Time, error) {
	p := fold(phrase)
	if p == "" {
		return time.Time{}, parseErr("date phrase is empty")
	}
	today := model.Date(r.now(), r.loc)

	if n, ok := relativeDays[p]; ok {
		return today.AddDate(0, 0, n), nil
	}
	if d, ok, err := parseNumericDate(strings.TrimPrefix(p, "ngay "), r.loc); ok {
		return d, err
	}

	p = strings.TrimPrefix(p, "on ")
	ref, name := splitWeekQualifier(p)
	wd, ok := weekdays[name]
	if !ok {
		return time.Time{}, parseErr("cannot resolve date %q", phrase)
	}

	switch ref {
	case weekThis:
		d := weekStart(today).AddDate(0, 0, mondayOffset(wd))
		if d.Before(today) {
			return time.Time{}, parseErr("%q is already past", phrase)
		}
		return d, nil
	case weekNext:
		return weekStart(today).AddDate(0, 0, 7+mondayOffset(wd)), nil
	default:
		delta := (int(wd) - int(today.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return today.AddDate(0, 0, delta), nil
	}
}

// ResolveTime returns the clock time a phrase names. Unreadable input is a
// parse error; there is no default hour.
func (r *Resolver) ResolveTime(phrase string) (model.TimeOfDay, error) {
	p := fold(phrase)
	p = strings.TrimPrefix(p, "luc ")
	p = strings.TrimPrefix(p, "at ")
	if p == "" {
		return 0, parseErr("time phrase is empty")
	}
	if m, ok := namedTimes[p]; ok {
		return model.TimeOfDay(m), nil
	}

	m := timePattern.FindStringSubmatch(p)
	if m == nil {
		return 0, parseErr("cannot resolve time %q", phrase)
	}
	hour, _ := strconv.Atoi(m[1])
	sep, minRaw, rest := m[2], m[3], strings.TrimSpace(m[4])

	minute := 0
	switch {
	case minRaw == "ruoi":
		minute = 30
	case minRaw != "":
		minute, _ = strconv.Atoi(minRaw)
	case sep == ":":
		return 0, parseErr("time %q is missing minutes", phrase)
	}
	if minute > 59 {
		return 0, parseErr("minute out of range in %q", phrase)
	}

	per := periodNone
	if rest != "" {
		v, ok := periods[rest]
		if !ok {
			return 0, parseErr("cannot resolve time %q", phrase)
		}
		per = v
	} else if sep == "" {
		// A bare number such as "9" could be morning or evening.
		return 0, parseErr("time %q is ambiguous", phrase)
	}

	hour, ok := applyPeriod(hour, per)
	if !ok {
		return 0, parseErr("hour out of range in %q", phrase)
	}
	return model.ClockTime(hour, minute), nil
}

func applyPeriod(hour int, per period) (int, bool) {
	switch per {
	case periodNone:
		return hour, hour >= 0 && hour <= 23
	case periodAM:
		if hour < 1 || hour > 12 {
			return 0, false
		}
		return hour % 12, true
	case periodPM:
		if hour >= 13 && hour <= 23 {
			return hour, true
		}
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			return 12, true
		}
		return hour + 12, true
	case periodNoon:
		switch {
		case hour >= 10 && hour <= 12:
			return hour, true
		case hour >= 1 && hour <= 2:
			return hour + 12, true
		}
		return 0, false
	case periodNight:
		switch {
		case hour == 12:
			return 0, true
		case hour >= 7 && hour <= 11:
			return hour + 12, true
		case hour >= 1 && hour <= 4:
			return hour, true
		}
		return 0, false
	}
	return 0, false
}

func parseNumericDate(p string, loc *time.Location) (time.Time, bool, error) {
	var y, mo, d int
	if m := dmyPattern.FindStringSubmatch(p); m != nil {
		if m[2] != m[4] {
			return time.Time{}, true, parseErr("mixed separators in date %q", p)
		}
		d, _ = strconv.Atoi(m[1])
		mo, _ = strconv.Atoi(m[3])
		y, _ = strconv.Atoi(m[5])
	} else if m := isoPattern.FindStringSubmatch(p); m != nil {
		y, _ = strconv.Atoi(m[1])
		mo, _ = strconv.Atoi(m[2])
		d, _ = strconv.Atoi(m[3])
	} else {
		return time.Time{}, false, nil
	}

	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, true, parseErr("date %q does not exist", p)
	}
	return t, true, nil
}

func splitWeekQualifier(p string) (weekRef, string) {
	for _, q := range weekPrefixes {
		if strings.HasPrefix(p, q.text) {
			return q.ref, strings.TrimPrefix(p, q.text)
		}
	}
	for _, q := range weekSuffixes {
		if strings.HasSuffix(p, q.text) {
			return q.ref, strings.TrimSuffix(p, q.text)
		}
	}
	return weekNone, p
}

// weekStart is the Monday of the week containing day.
func weekStart(day time.Time) time.Time {
	return day.AddDate(0, 0, -mondayOffset(day.Weekday()))
}

func mondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
