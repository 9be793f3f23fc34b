package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/breaks"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var monday = time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)

func mondayRule(slot, gap time.Duration) *model.AvailabilityRule {
	return &model.AvailabilityRule{
		ProviderID:   "p1",
		DayOfWeek:    time.Monday,
		Start:        model.ClockTime(9, 0),
		End:          model.ClockTime(12, 0),
		SlotDuration: slot,
		Gap:          gap,
		Active:       true,
	}
}

func TestGenerate_NoBookings(t *testing.T) {
	day := conflict.Day{Date: monday, Rule: mondayRule(30*time.Minute, 0)}

	slots := Generate("p1", day, 0, time.Time{}, time.UTC)
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
	if !slots[5].End.Equal(monday.Add(12 * time.Hour)) {
		t.Fatalf("expected last slot to end 12:00, got %s", slots[5].End.Format(time.RFC3339))
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.After(slots[i-1].Start) {
			t.Fatalf("slots not ascending at %d", i)
		}
	}
}

func TestGenerate_GapAdvancesStep(t *testing.T) {
	day := conflict.Day{Date: monday, Rule: mondayRule(30*time.Minute, 15*time.Minute)}

	slots := Generate("p1", day, 0, time.Time{}, time.UTC)
	// 09:00, 09:45, 10:30, 11:15 (ends 11:45); 12:00 would end past the window.
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if !slots[1].Start.Equal(monday.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Start.Format(time.RFC3339))
	}
}

func TestGenerate_SkipsBookedAndBreaks(t *testing.T) {
	day := conflict.Day{
		Date: monday,
		Rule: mondayRule(30*time.Minute, 0),
		Appointments: []model.Appointment{
			{ID: "a1", ProviderID: "p1", StartAt: monday.Add(10 * time.Hour), Duration: 30 * time.Minute, Status: model.StatusConfirmed},
			{ID: "a2", ProviderID: "p1", StartAt: monday.Add(11 * time.Hour), Duration: 30 * time.Minute, Status: model.StatusCancelled},
		},
		Breaks: []breaks.Occurrence{{
			Break:    model.BreakException{ID: "b1"},
			Interval: model.Interval{Start: monday.Add(9*time.Hour + 15*time.Minute), End: monday.Add(9*time.Hour + 45*time.Minute)},
		}},
	}

	slots := Generate("p1", day, 0, time.Time{}, time.UTC)
	// 09:00 and 09:30 touch the break, 10:00 is booked, cancelled 11:00 frees its slot.
	want := []time.Duration{10*time.Hour + 30*time.Minute, 11 * time.Hour, 11*time.Hour + 30*time.Minute}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].Start.Equal(monday.Add(w)) {
			t.Fatalf("slot %d: expected %s, got %s", i, monday.Add(w).Format(time.Kitchen), slots[i].Start.Format(time.Kitchen))
		}
		for _, a := range day.Appointments {
			if a.Status.Active() && a.Interval().Overlaps(model.Interval{Start: slots[i].Start, End: slots[i].End}) {
				t.Fatalf("slot %d overlaps active appointment %s", i, a.ID)
			}
		}
	}
}

func TestGenerate_SkipsPast(t *testing.T) {
	day := conflict.Day{Date: monday, Rule: mondayRule(30*time.Minute, 0)}

	now := monday.Add(10*time.Hour + 1*time.Minute)
	slots := Generate("p1", day, 0, now, time.UTC)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday.Add(10*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected slot 10:30, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestGenerate_NoRuleMeansNoSlots(t *testing.T) {
	if got := Generate("p1", conflict.Day{Date: monday}, 0, time.Time{}, time.UTC); len(got) != 0 {
		t.Fatalf("expected no slots, got %d", len(got))
	}
}

func TestGenerate_DailyLimitReached(t *testing.T) {
	rule := mondayRule(30*time.Minute, 0)
	rule.MaxPerDay = 1
	day := conflict.Day{
		Date: monday,
		Rule: rule,
		Appointments: []model.Appointment{
			{ID: "a1", StartAt: monday.Add(9 * time.Hour), Duration: 30 * time.Minute, Status: model.StatusPending},
		},
	}
	if got := Generate("p1", day, 0, time.Time{}, time.UTC); len(got) != 0 {
		t.Fatalf("expected no slots once the daily limit is reached, got %d", len(got))
	}
}

func TestGenerate_CustomLength(t *testing.T) {
	day := conflict.Day{Date: monday, Rule: mondayRule(30*time.Minute, 0)}
	slots := Generate("p1", day, time.Hour, time.Time{}, time.UTC)
	// Starts every 30 minutes, each an hour long: 09:00 .. 11:00.
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
}

func TestDatesInclusive(t *testing.T) {
	got := Dates(monday, monday.AddDate(0, 0, 6), time.UTC)
	if len(got) != 7 {
		t.Fatalf("expected 7 dates, got %d", len(got))
	}
	if got[6].Weekday() != time.Sunday {
		t.Fatalf("expected Sunday last, got %s", got[6].Weekday())
	}
}
