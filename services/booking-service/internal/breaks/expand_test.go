package breaks

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandOneOff(t *testing.T) {
	b := model.BreakException{
		ID: "b1", ProviderID: "p1",
		Date:  day(2025, 8, 18),
		Start: model.ClockTime(12, 0), End: model.ClockTime(13, 0),
	}

	occ, err := Expand(b, day(2025, 8, 18), day(2025, 8, 24), time.UTC)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(occ) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occ))
	}
	if !occ[0].Interval.Start.Equal(time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", occ[0].Interval.Start)
	}

	occ, err = Expand(b, day(2025, 8, 19), day(2025, 8, 24), time.UTC)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(occ) != 0 {
		t.Fatalf("expected no occurrences outside range, got %d", len(occ))
	}
}

func TestExpandWeeklyShorthand(t *testing.T) {
	b := model.BreakException{
		ID: "lunch", ProviderID: "p1",
		Date:  day(2025, 8, 18), // Monday
		Start: model.ClockTime(12, 0), End: model.ClockTime(12, 30),
		Recurring: true, Pattern: "weekly",
	}

	occ, err := Expand(b, day(2025, 8, 1), day(2025, 9, 7), time.UTC)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	// 18, 25 Aug and 1 Sep. Nothing before the first date.
	if len(occ) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occ))
	}
	for _, o := range occ {
		if o.Interval.Start.Weekday() != time.Monday {
			t.Fatalf("expected Monday, got %s", o.Interval.Start.Weekday())
		}
		if o.Interval.End.Sub(o.Interval.Start) != 30*time.Minute {
			t.Fatalf("unexpected length %s", o.Interval.End.Sub(o.Interval.Start))
		}
	}
}

func TestExpandRRuleBody(t *testing.T) {
	b := model.BreakException{
		ID: "gym", ProviderID: "p1",
		Date:  day(2025, 8, 18),
		Start: model.ClockTime(17, 0), End: model.ClockTime(18, 0),
		Recurring: true, Pattern: "RRULE:FREQ=WEEKLY;BYDAY=MO,WE",
	}
	occ, err := Expand(b, day(2025, 8, 18), day(2025, 8, 24), time.UTC)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(occ) != 2 {
		t.Fatalf("expected Monday and Wednesday, got %d", len(occ))
	}
	if occ[1].Interval.Start.Day() != 20 {
		t.Fatalf("expected 20th, got %s", occ[1].Interval.Start)
	}
}

func TestValidate(t *testing.T) {
	ok := model.BreakException{ProviderID: "p", Date: day(2025, 8, 18), Start: 600, End: 660}
	if err := Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]model.BreakException{
		"inverted":    {ProviderID: "p", Date: day(2025, 8, 18), Start: 660, End: 600},
		"no date":     {ProviderID: "p", Start: 600, End: 660},
		"bad pattern": {ProviderID: "p", Date: day(2025, 8, 18), Start: 600, End: 660, Recurring: true, Pattern: "sometimes"},
	}
	for name, b := range cases {
		if err := Validate(b); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestConflictingIsHalfOpen(t *testing.T) {
	list := []model.BreakException{{
		ID: "b1", ProviderID: "p1", Date: day(2025, 8, 18),
		Start: model.ClockTime(12, 0), End: model.ClockTime(13, 0),
	}}

	touching := model.Interval{
		Start: time.Date(2025, 8, 18, 11, 30, 0, 0, time.UTC),
		End:   time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC),
	}
	got, err := Conflicting(list, touching, time.UTC)
	if err != nil {
		t.Fatalf("Conflicting failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("back-to-back window must not conflict, got %d", len(got))
	}

	inside := model.Interval{
		Start: time.Date(2025, 8, 18, 12, 45, 0, 0, time.UTC),
		End:   time.Date(2025, 8, 18, 13, 15, 0, 0, time.UTC),
	}
	got, err = Conflicting(list, inside, time.UTC)
	if err != nil {
		t.Fatalf("Conflicting failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b1" {
		t.Fatalf("expected b1, got %+v", got)
	}
}
