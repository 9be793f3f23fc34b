package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interval is half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// TimeOfDay is minutes since local midnight, 0..1440.
type TimeOfDay int

const MinutesPerDay TimeOfDay = 24 * 60

func ClockTime(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM"; "24:00" is allowed as an end of day marker.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, fmt.Errorf("time %q must be HH:MM", raw)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", raw)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return 0, fmt.Errorf("time %q must be HH:MM", raw)
	}
	t := ClockTime(hour, minute)
	if hour < 0 || minute < 0 || minute > 59 || t > MinutesPerDay {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return t, nil
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On places the clock time on the civil date of day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, int(t), 0, 0, loc)
}

// Date truncates t to its civil date in loc.
func Date(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

type AvailabilityRule struct {
	ID           string
	ProviderID   string
	DayOfWeek    time.Weekday
	Start        TimeOfDay
	End          TimeOfDay
	SlotDuration time.Duration
	Gap          time.Duration
	MaxPerDay    int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Window returns the rule's working window on the given civil date.
func (r AvailabilityRule) Window(day time.Time, loc *time.Location) Interval {
	return Interval{Start: r.Start.On(day, loc), End: r.End.On(day, loc)}
}

func (r AvailabilityRule) Step() time.Duration {
	return r.SlotDuration + r.Gap
}

type BreakException struct {
	ID         string
	ProviderID string
	Date       time.Time
	Start      TimeOfDay
	End        TimeOfDay
	Reason     string
	Recurring  bool
	Pattern    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
	RoleAdmin     Role = "admin"
)

type User struct {
	ID          string
	Role        Role
	DisplayName string
}
