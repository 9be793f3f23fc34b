package breaks

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/teambition/rrule-go"
)

// maxOccurrencesPerBreak bounds the work one recurring break can cause.
const maxOccurrencesPerBreak = 1000

// Occurrence is a break placed on a concrete date.
type Occurrence struct {
	Break    model.BreakException
	Interval model.Interval
}

var shorthands = map[string]string{
	"DAILY":   "FREQ=DAILY",
	"WEEKLY":  "FREQ=WEEKLY",
	"MONTHLY": "FREQ=MONTHLY",
	"YEARLY":  "FREQ=YEARLY",
}

// NormalizePattern turns a shorthand ("WEEKLY") or an RRULE body
// ("RRULE:FREQ=WEEKLY;BYDAY=MO,WE") into a form rrule-go accepts.
func NormalizePattern(pattern string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(pattern))
	p = strings.TrimPrefix(p, "RRULE:")
	if p == "" {
		return "", fmt.Errorf("recurrence pattern is empty")
	}
	if full, ok := shorthands[p]; ok {
		return full, nil
	}
	if strings.Contains(p, "DTSTART") {
		return "", fmt.Errorf("recurrence pattern must not carry DTSTART")
	}
	if !strings.Contains(p, "FREQ=") {
		return "", fmt.Errorf("recurrence pattern %q has no FREQ", pattern)
	}
	if _, err := rrule.StrToROption(p); err != nil {
		return "", fmt.Errorf("recurrence pattern %q: %w", pattern, err)
	}
	return p, nil
}

// Validate checks a break before it is stored.
func Validate(b model.BreakException) error {
	if b.ProviderID == "" {
		return fmt.Errorf("provider is required")
	}
	if b.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if !b.Start.Valid() || !b.End.Valid() {
		return fmt.Errorf("break times out of range")
	}
	if b.Start >= b.End {
		return fmt.Errorf("break start %s must be before end %s", b.Start, b.End)
	}
	if b.Recurring {
		if _, err := NormalizePattern(b.Pattern); err != nil {
			return err
		}
	}
	return nil
}

// Expand returns occurrences of b whose date lies in [from, to] (civil dates in loc).
func Expand(b model.BreakException, from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	rangeStart := model.Date(from, loc)
	rangeEnd := model.Date(to, loc).AddDate(0, 0, 1)
	length := time.Duration(b.End-b.Start) * time.Minute
	first := b.Start.On(b.Date, loc)

	if !b.Recurring {
		day := model.Date(first, loc)
		if day.Before(rangeStart) || !day.Before(rangeEnd) {
			return nil, nil
		}
		return []Occurrence{{Break: b, Interval: model.Interval{Start: first, End: first.Add(length)}}}, nil
	}

	pattern, err := NormalizePattern(b.Pattern)
	if err != nil {
		return nil, err
	}
	opt, err := rrule.StrToROption(pattern)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = first
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}

	starts := r.Between(rangeStart, rangeEnd.Add(-time.Nanosecond), true)
	if len(starts) > maxOccurrencesPerBreak {
		starts = starts[:maxOccurrencesPerBreak]
	}
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		s = s.In(loc)
		out = append(out, Occurrence{Break: b, Interval: model.Interval{Start: s, End: s.Add(length)}})
	}
	return out, nil
}

// ExpandAll expands every break over [from, to] and sorts by start.
func ExpandAll(list []model.BreakException, from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	var out []Occurrence
	for _, b := range list {
		occ, err := Expand(b, from, to, loc)
		if err != nil {
			return nil, fmt.Errorf("expand break %s: %w", b.ID, err)
		}
		out = append(out, occ...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	return out, nil
}

// Conflicting returns the breaks with an occurrence intersecting window.
func Conflicting(list []model.BreakException, window model.Interval, loc *time.Location) ([]model.BreakException, error) {
	occ, err := ExpandAll(list, window.Start, window.End, loc)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []model.BreakException
	for _, o := range occ {
		if !o.Interval.Overlaps(window) || seen[o.Break.ID] {
			continue
		}
		seen[o.Break.ID] = true
		out = append(out, o.Break)
	}
	return out, nil
}
