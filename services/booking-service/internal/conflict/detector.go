package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/breaks"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonAppointment    Reason = "appointment_overlap"
	ReasonBreak          Reason = "break_overlap"
	ReasonNoAvailability Reason = "no_availability"
	ReasonOutsideHours   Reason = "outside_hours"
	ReasonDailyLimit     Reason = "daily_limit"
)

// Result says whether a window is bookable and, if not, what blocks it.
type Result struct {
	Free        bool
	Reason      Reason
	Appointment *model.Appointment
	Break       *model.BreakException
}

func free() Result { return Result{Free: true} }

func blocked(r Reason) Result { return Result{Reason: r} }

// Day is everything that decides bookability for one provider on one civil date.
type Day struct {
	Date         time.Time
	Rule         *model.AvailabilityRule
	Appointments []model.Appointment
	Breaks       []breaks.Occurrence
}

// ActiveCount is the number of PENDING or CONFIRMED appointments on the day.
func (d Day) ActiveCount() int {
	n := 0
	for _, a := range d.Appointments {
		if a.Status.Active() {
			n++
		}
	}
	return n
}

// Evaluate decides whether window can be booked given the day's state.
func Evaluate(window model.Interval, day Day, loc *time.Location) Result {
	if day.Rule == nil || !day.Rule.Active {
		return blocked(ReasonNoAvailability)
	}
	if !day.Rule.Window(day.Date, loc).Contains(window) {
		return blocked(ReasonOutsideHours)
	}
	for i := range day.Appointments {
		a := day.Appointments[i]
		if a.Status.Active() && a.Interval().Overlaps(window) {
			res := blocked(ReasonAppointment)
			res.Appointment = &a
			return res
		}
	}
	if day.Rule.MaxPerDay > 0 && day.ActiveCount() >= day.Rule.MaxPerDay {
		return blocked(ReasonDailyLimit)
	}
	for i := range day.Breaks {
		o := day.Breaks[i]
		if o.Interval.Overlaps(window) {
			res := blocked(ReasonBreak)
			b := o.Break
			res.Break = &b
			return res
		}
	}
	return free()
}

// Source is the read side the detector needs. Both the stores and an open
// booking transaction satisfy it.
type Source interface {
	FindActiveRule(ctx context.Context, providerID string, day time.Weekday) (model.AvailabilityRule, bool, error)
	ListBreaks(ctx context.Context, providerID string) ([]model.BreakException, error)
	ListActiveAppointments(ctx context.Context, providerID string, from, to time.Time) ([]model.Appointment, error)
}

type Detector struct {
	loc *time.Location
}

func NewDetector(loc *time.Location) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{loc: loc}
}

func (d *Detector) Location() *time.Location { return d.loc }

// LoadDay reads the rule, active appointments and break occurrences for date.
func (d *Detector) LoadDay(ctx context.Context, src Source, providerID string, date time.Time) (Day, error) {
	date = model.Date(date, d.loc)
	day := Day{Date: date}

	rule, ok, err := src.FindActiveRule(ctx, providerID, date.Weekday())
	if err != nil {
		return Day{}, fmt.Errorf("load rule: %w", err)
	}
	if ok {
		day.Rule = &rule
	}

	appts, err := src.ListActiveAppointments(ctx, providerID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return Day{}, fmt.Errorf("load appointments: %w", err)
	}
	day.Appointments = appts

	list, err := src.ListBreaks(ctx, providerID)
	if err != nil {
		return Day{}, fmt.Errorf("load breaks: %w", err)
	}
	occ, err := breaks.ExpandAll(list, date, date, d.loc)
	if err != nil {
		return Day{}, err
	}
	day.Breaks = occ
	return day, nil
}

// Check evaluates [start, start+duration) against the provider's current state.
func (d *Detector) Check(ctx context.Context, src Source, providerID string, start time.Time, duration time.Duration) (Result, error) {
	if duration <= 0 {
		return Result{}, fmt.Errorf("duration must be positive")
	}
	day, err := d.LoadDay(ctx, src, providerID, start)
	if err != nil {
		return Result{}, err
	}
	window := model.Interval{Start: start, End: start.Add(duration)}
	return Evaluate(window, day, d.loc), nil
}
