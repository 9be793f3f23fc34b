package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage/memory"
)

type countingCache struct {
	invalidated map[string]int
	err         error
}

func (c *countingCache) Invalidate(_ context.Context, providerID string) error {
	if c.invalidated == nil {
		c.invalidated = make(map[string]int)
	}
	c.invalidated[providerID]++
	return c.err
}

func newTestService(t *testing.T) (*Service, *countingCache) {
	t.Helper()
	store := memory.New()
	cache := &countingCache{}
	dir := directory.NewStatic(
		model.User{ID: "prov-1", Role: model.RoleProvider},
		model.User{ID: "prov-2", Role: model.RoleProvider},
		model.User{ID: "req-1", Role: model.RoleRequester},
		model.User{ID: "admin", Role: model.RoleAdmin},
	)
	svc := NewService(Deps{
		Rules:     store,
		Breaks:    store,
		Directory: dir,
		Cache:     cache,
		Location:  time.UTC,
		Logger:    runtime.DiscardLogger(),
	})
	return svc, cache
}

func mondayRule(provider string) RuleInput {
	return RuleInput{
		ProviderID:   provider,
		DayOfWeek:    time.Monday,
		Start:        model.ClockTime(9, 0),
		End:          model.ClockTime(12, 0),
		SlotDuration: 30 * time.Minute,
	}
}

func TestUpsertRule_ReplacesInPlace(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()

	first, err := svc.UpsertRule(ctx, "prov-1", mondayRule("prov-1"))
	if err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	in := mondayRule("prov-1")
	in.Start = model.ClockTime(13, 0)
	in.End = model.ClockTime(17, 0)
	second, err := svc.UpsertRule(ctx, "prov-1", in)
	if err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same rule to be updated, got %s and %s", first.ID, second.ID)
	}

	rules, err := svc.ListRules(ctx, "prov-1")
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].Start != model.ClockTime(13, 0) {
		t.Fatalf("expected one updated rule, got %+v", rules)
	}
	if cache.invalidated["prov-1"] != 2 {
		t.Fatalf("expected 2 invalidations, got %d", cache.invalidated["prov-1"])
	}
}

func TestUpsertRule_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bad := mondayRule("prov-1")
	bad.Start, bad.End = bad.End, bad.Start
	if _, err := svc.UpsertRule(ctx, "prov-1", bad); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for start >= end, got %v", err)
	}

	tooLong := mondayRule("prov-1")
	tooLong.SlotDuration = 4 * time.Hour
	if _, err := svc.UpsertRule(ctx, "prov-1", tooLong); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for oversized slot, got %v", err)
	}

	if _, err := svc.UpsertRule(ctx, "ghost", mondayRule("ghost")); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.UpsertRule(ctx, "req-1", mondayRule("req-1")); !apperr.Is(err, apperr.KindInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if _, err := svc.UpsertRule(ctx, "prov-2", mondayRule("prov-1")); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.UpsertRule(ctx, "admin", mondayRule("prov-1")); err != nil {
		t.Fatalf("admin should manage any schedule: %v", err)
	}
}

func TestGetAndDeleteRule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetRule(ctx, "prov-1", time.Monday); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found before upsert, got %v", err)
	}
	if _, err := svc.UpsertRule(ctx, "prov-1", mondayRule("prov-1")); err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	if _, err := svc.GetRule(ctx, "prov-1", time.Monday); err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if err := svc.DeleteRule(ctx, "prov-1", "prov-1", time.Monday); err != nil {
		t.Fatalf("DeleteRule failed: %v", err)
	}
	if err := svc.DeleteRule(ctx, "prov-1", "prov-1", time.Monday); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestBreaks_CRUD(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)

	b, err := svc.CreateBreak(ctx, "prov-1", BreakInput{
		ProviderID: "prov-1",
		Date:       day,
		Start:      model.ClockTime(12, 0),
		End:        model.ClockTime(13, 0),
		Reason:     "lunch",
		Recurring:  true,
		Pattern:    "weekly",
	})
	if err != nil {
		t.Fatalf("CreateBreak failed: %v", err)
	}
	if b.Pattern != "FREQ=WEEKLY" {
		t.Fatalf("expected normalized pattern, got %q", b.Pattern)
	}

	if _, err := svc.UpdateBreak(ctx, "prov-2", b.ID, BreakInput{Date: day, Start: 600, End: 660}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized update by another provider, got %v", err)
	}
	updated, err := svc.UpdateBreak(ctx, "prov-1", b.ID, BreakInput{Date: day, Start: model.ClockTime(12, 30), End: model.ClockTime(13, 30), Reason: "late lunch"})
	if err != nil {
		t.Fatalf("UpdateBreak failed: %v", err)
	}
	if updated.ProviderID != "prov-1" || updated.Recurring || updated.Start != model.ClockTime(12, 30) {
		t.Fatalf("unexpected updated break %+v", updated)
	}

	if err := svc.DeleteBreak(ctx, "prov-1", b.ID); err != nil {
		t.Fatalf("DeleteBreak failed: %v", err)
	}
	if _, err := svc.GetBreak(ctx, b.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCreateBreak_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)

	cases := []BreakInput{
		{ProviderID: "prov-1", Start: 600, End: 660},
		{ProviderID: "prov-1", Date: day, Start: 660, End: 600},
		{ProviderID: "prov-1", Date: day, Start: 600, End: 660, Recurring: true, Pattern: "sometimes"},
	}
	for _, in := range cases {
		if _, err := svc.CreateBreak(ctx, "prov-1", in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestFindConflicting_HalfOpen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	monday := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)

	if _, err := svc.CreateBreak(ctx, "prov-1", BreakInput{
		ProviderID: "prov-1", Date: monday,
		Start: model.ClockTime(12, 0), End: model.ClockTime(13, 0),
		Recurring: true, Pattern: "FREQ=WEEKLY;BYDAY=MO",
	}); err != nil {
		t.Fatalf("CreateBreak failed: %v", err)
	}

	nextMonday := monday.AddDate(0, 0, 7)
	got, err := svc.FindConflicting(ctx, "prov-1", nextMonday, model.ClockTime(12, 30), model.ClockTime(12, 45))
	if err != nil {
		t.Fatalf("FindConflicting failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected recurring break to conflict, got %d", len(got))
	}

	got, err = svc.FindConflicting(ctx, "prov-1", nextMonday, model.ClockTime(13, 0), model.ClockTime(13, 30))
	if err != nil {
		t.Fatalf("FindConflicting failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("back-to-back window must not conflict, got %d", len(got))
	}

	got, err = svc.FindConflicting(ctx, "prov-1", nextMonday.AddDate(0, 0, 1), model.ClockTime(12, 0), model.ClockTime(13, 0))
	if err != nil {
		t.Fatalf("FindConflicting failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("break recurs on Mondays only, got %d on Tuesday", len(got))
	}
}

func TestInvalidationFailureIsNotFatal(t *testing.T) {
	svc, cache := newTestService(t)
	cache.err = errors.New("redis down")
	if _, err := svc.UpsertRule(context.Background(), "prov-1", mondayRule("prov-1")); err != nil {
		t.Fatalf("cache failure must not fail the upsert: %v", err)
	}
}

func TestListRulesAndBreaks_RequireProvider(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		providerID string
		kind       apperr.Kind
	}{
		{"missing id", "", apperr.KindValidation},
		{"unknown user", "ghost", apperr.KindNotFound},
		{"requester", "req-1", apperr.KindInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ListRules(ctx, tc.providerID); !apperr.Is(err, tc.kind) {
				t.Fatalf("ListRules: expected %s, got %v", tc.kind, err)
			}
			if _, err := svc.ListBreaks(ctx, tc.providerID); !apperr.Is(err, tc.kind) {
				t.Fatalf("ListBreaks: expected %s, got %v", tc.kind, err)
			}
		})
	}

	if rules, err := svc.ListRules(ctx, "prov-2"); err != nil || len(rules) != 0 {
		t.Fatalf("expected empty rule list for a provider, got %v err=%v", rules, err)
	}
}
