package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/breaks"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ListAvailableSlots returns the provider's free slots on every civil date in
// [from, to], ordered by start. A zero length means the rule's slot duration.
// Slots that already started are left out.
func (s *Service) ListAvailableSlots(ctx context.Context, providerID string, from, to time.Time, length time.Duration) ([]model.Slot, error) {
	ctx, span := s.tracer.Start(ctx, "booking.list_slots", trace.WithAttributes(
		attribute.String("booking.provider_id", providerID),
	))
	defer span.End()

	from = model.Date(from, s.loc)
	to = model.Date(to, s.loc)
	if to.Before(from) {
		return nil, apperr.Validation("to %s is before from %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	if days := int(to.Sub(from).Round(24*time.Hour)/(24*time.Hour)) + 1; days > MaxSlotRangeDays {
		return nil, apperr.Validation("range of %d days exceeds %d", days, MaxSlotRangeDays)
	}
	if length < 0 {
		return nil, apperr.Validation("duration must be positive")
	}
	if err := scheduling.RequireRole(ctx, s.dir, providerID, model.RoleProvider); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s:%d", from.Format(time.DateOnly), to.Format(time.DateOnly), int(length/time.Minute))
	slots, version, hit := s.cachedSlots(ctx, providerID, key)
	if !hit {
		var err error
		slots, err = s.generate(ctx, providerID, from, to, length)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if version != "" {
			if err := s.cache.Put(ctx, providerID, version, key, slots); err != nil {
				s.logger.Warn("slot cache write failed", "provider_id", providerID, "err", err)
			}
		}
	}
	span.SetAttributes(attribute.Bool("booking.cache_hit", hit))

	now := s.now()
	out := make([]model.Slot, 0, len(slots))
	for _, sl := range slots {
		if !sl.Start.Before(now) {
			out = append(out, sl)
		}
	}
	return out, nil
}

// cachedSlots returns the cached list, or on a miss the version a freshly
// generated list must be stored under. An empty version means do not store.
func (s *Service) cachedSlots(ctx context.Context, providerID, key string) ([]model.Slot, string, bool) {
	if s.cache == nil {
		return nil, "", false
	}
	slots, version, ok, err := s.cache.Get(ctx, providerID, key)
	if err != nil {
		s.logger.Warn("slot cache read failed", "provider_id", providerID, "err", err)
		return nil, "", false
	}
	return slots, version, ok
}

// generate loads the whole range in three reads and builds each day in memory.
func (s *Service) generate(ctx context.Context, providerID string, from, to time.Time, length time.Duration) ([]model.Slot, error) {
	rules, err := s.store.ListRules(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	byDay := make(map[time.Weekday]model.AvailabilityRule, len(rules))
	for _, r := range rules {
		if r.Active {
			byDay[r.DayOfWeek] = r
		}
	}

	breakList, err := s.store.ListBreaks(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	appts, err := s.store.ListActiveAppointments(ctx, providerID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	var slots []model.Slot
	for _, date := range availability.Dates(from, to, s.loc) {
		rule, ok := byDay[date.Weekday()]
		if !ok {
			continue
		}
		dayWindow := model.Interval{Start: date, End: date.AddDate(0, 0, 1)}
		day := conflict.Day{Date: date, Rule: &rule}
		for _, a := range appts {
			if a.Interval().Overlaps(dayWindow) {
				day.Appointments = append(day.Appointments, a)
			}
		}
		occ, err := breaks.ExpandAll(breakList, date, date, s.loc)
		if err != nil {
			return nil, err
		}
		day.Breaks = occ
		slots = append(slots, availability.Generate(providerID, day, length, time.Time{}, s.loc)...)
	}
	return slots, nil
}
