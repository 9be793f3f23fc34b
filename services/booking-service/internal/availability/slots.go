package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Generate returns the free slots of one provider on day.Date, ascending.
//
// Candidates start at the rule's start and advance by SlotDuration+Gap while
// the candidate still ends inside the rule window. A candidate of the given
// length (the rule's SlotDuration when zero) is kept only if the conflict
// evaluation says it is free. Slots starting before now are skipped; pass the
// zero time to keep all of them.
func Generate(providerID string, day conflict.Day, length time.Duration, now time.Time, loc *time.Location) []model.Slot {
	rule := day.Rule
	if rule == nil || !rule.Active {
		return nil
	}
	if length <= 0 {
		length = rule.SlotDuration
	}
	step := rule.Step()
	if length <= 0 || step <= 0 {
		return nil
	}

	window := rule.Window(day.Date, loc)
	var slots []model.Slot
	for t := window.Start; !t.Add(length).After(window.End); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		candidate := model.Interval{Start: t, End: t.Add(length)}
		if !conflict.Evaluate(candidate, day, loc).Free {
			continue
		}
		slots = append(slots, model.Slot{ProviderID: providerID, Start: candidate.Start, End: candidate.End})
	}
	return slots
}

// Dates lists the civil dates in [from, to], inclusive.
func Dates(from, to time.Time, loc *time.Location) []time.Time {
	start := model.Date(from, loc)
	end := model.Date(to, loc)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
