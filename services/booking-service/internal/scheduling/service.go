package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/breaks"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// Invalidator drops cached availability for a provider after its schedule changes.
type Invalidator interface {
	Invalidate(ctx context.Context, providerID string) error
}

type Deps struct {
	Rules     storage.RuleStore
	Breaks    storage.BreakStore
	Directory directory.Directory
	Cache     Invalidator
	Location  *time.Location
	Logger    *slog.Logger
}

// Service owns providers' weekly rules and break exceptions.
type Service struct {
	rules  storage.RuleStore
	breaks storage.BreakStore
	dir    directory.Directory
	cache  Invalidator
	loc    *time.Location
	logger *slog.Logger
}

func NewService(d Deps) *Service {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		rules:  d.Rules,
		breaks: d.Breaks,
		dir:    d.Directory,
		cache:  d.Cache,
		loc:    d.Location,
		logger: d.Logger,
	}
}

type RuleInput struct {
	ProviderID   string
	DayOfWeek    time.Weekday
	Start        model.TimeOfDay
	End          model.TimeOfDay
	SlotDuration time.Duration
	Gap          time.Duration
	MaxPerDay    int
}

func validateRule(in RuleInput) error {
	if in.ProviderID == "" {
		return apperr.Validation("provider_id is required")
	}
	if in.DayOfWeek < time.Sunday || in.DayOfWeek > time.Saturday {
		return apperr.Validation("day_of_week must be 0 (Sunday) to 6 (Saturday)")
	}
	if !in.Start.Valid() || !in.End.Valid() {
		return apperr.Validation("start and end must be within the day")
	}
	if in.Start >= in.End {
		return apperr.Validation("start %s must be before end %s", in.Start, in.End)
	}
	if in.SlotDuration <= 0 || in.SlotDuration%time.Minute != 0 {
		return apperr.Validation("slot duration must be a positive whole number of minutes")
	}
	if in.Gap < 0 || in.Gap%time.Minute != 0 {
		return apperr.Validation("gap must be a non-negative whole number of minutes")
	}
	if in.MaxPerDay < 0 {
		return apperr.Validation("max_per_day must not be negative")
	}
	if window := time.Duration(in.End-in.Start) * time.Minute; in.SlotDuration > window {
		return apperr.Validation("slot duration %s does not fit in %s-%s", in.SlotDuration, in.Start, in.End)
	}
	return nil
}

// UpsertRule replaces the provider's active rule for the weekday, or creates it.
func (s *Service) UpsertRule(ctx context.Context, actorID string, in RuleInput) (model.AvailabilityRule, error) {
	if err := validateRule(in); err != nil {
		return model.AvailabilityRule{}, err
	}
	if err := s.authorize(ctx, actorID, in.ProviderID); err != nil {
		return model.AvailabilityRule{}, err
	}

	rule, err := s.rules.UpsertRule(ctx, model.AvailabilityRule{
		ProviderID:   in.ProviderID,
		DayOfWeek:    in.DayOfWeek,
		Start:        in.Start,
		End:          in.End,
		SlotDuration: in.SlotDuration,
		Gap:          in.Gap,
		MaxPerDay:    in.MaxPerDay,
		Active:       true,
	})
	if err != nil {
		return model.AvailabilityRule{}, fmt.Errorf("upsert rule: %w", err)
	}
	s.invalidate(ctx, in.ProviderID)
	s.logger.Info("availability rule saved", "provider_id", in.ProviderID, "day_of_week", int(in.DayOfWeek), "rule_id", rule.ID)
	return rule, nil
}

func (s *Service) GetRule(ctx context.Context, providerID string, day time.Weekday) (model.AvailabilityRule, error) {
	rule, ok, err := s.rules.FindActiveRule(ctx, providerID, day)
	if err != nil {
		return model.AvailabilityRule{}, fmt.Errorf("find rule: %w", err)
	}
	if !ok {
		return model.AvailabilityRule{}, apperr.NotFound("no active rule for provider %s on %s", providerID, day)
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context, providerID string) ([]model.AvailabilityRule, error) {
	if err := RequireRole(ctx, s.dir, providerID, model.RoleProvider); err != nil {
		return nil, err
	}
	return s.rules.ListRules(ctx, providerID)
}

// DeleteRule removes future availability for the weekday. Existing
// appointments are not touched.
func (s *Service) DeleteRule(ctx context.Context, actorID, providerID string, day time.Weekday) error {
	if err := s.authorize(ctx, actorID, providerID); err != nil {
		return err
	}
	if err := s.rules.DeleteRule(ctx, providerID, day); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("no rule for provider %s on %s", providerID, day)
		}
		return fmt.Errorf("delete rule: %w", err)
	}
	s.invalidate(ctx, providerID)
	return nil
}

type BreakInput struct {
	ProviderID string
	Date       time.Time
	Start      model.TimeOfDay
	End        model.TimeOfDay
	Reason     string
	Recurring  bool
	Pattern    string
}

func (s *Service) toBreak(in BreakInput) (model.BreakException, error) {
	b := model.BreakException{
		ProviderID: in.ProviderID,
		Start:      in.Start,
		End:        in.End,
		Reason:     in.Reason,
		Recurring:  in.Recurring,
		Pattern:    in.Pattern,
	}
	if !in.Date.IsZero() {
		b.Date = model.Date(in.Date, s.loc)
	}
	if err := breaks.Validate(b); err != nil {
		return model.BreakException{}, apperr.Wrap(apperr.KindValidation, err, "invalid break")
	}
	if b.Recurring {
		b.Pattern, _ = breaks.NormalizePattern(b.Pattern)
	} else {
		b.Pattern = ""
	}
	return b, nil
}

func (s *Service) CreateBreak(ctx context.Context, actorID string, in BreakInput) (model.BreakException, error) {
	b, err := s.toBreak(in)
	if err != nil {
		return model.BreakException{}, err
	}
	if err := s.authorize(ctx, actorID, b.ProviderID); err != nil {
		return model.BreakException{}, err
	}
	out, err := s.breaks.CreateBreak(ctx, b)
	if err != nil {
		return model.BreakException{}, fmt.Errorf("create break: %w", err)
	}
	s.invalidate(ctx, b.ProviderID)
	return out, nil
}

// UpdateBreak replaces the break's fields. The owning provider cannot change.
func (s *Service) UpdateBreak(ctx context.Context, actorID, id string, in BreakInput) (model.BreakException, error) {
	existing, err := s.GetBreak(ctx, id)
	if err != nil {
		return model.BreakException{}, err
	}
	in.ProviderID = existing.ProviderID
	b, err := s.toBreak(in)
	if err != nil {
		return model.BreakException{}, err
	}
	if err := s.authorize(ctx, actorID, existing.ProviderID); err != nil {
		return model.BreakException{}, err
	}
	b.ID = existing.ID
	out, err := s.breaks.UpdateBreak(ctx, b)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.BreakException{}, apperr.NotFound("break %s not found", id)
		}
		return model.BreakException{}, fmt.Errorf("update break: %w", err)
	}
	s.invalidate(ctx, b.ProviderID)
	return out, nil
}

func (s *Service) DeleteBreak(ctx context.Context, actorID, id string) error {
	existing, err := s.GetBreak(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, existing.ProviderID); err != nil {
		return err
	}
	if err := s.breaks.DeleteBreak(ctx, existing.ProviderID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("break %s not found", id)
		}
		return fmt.Errorf("delete break: %w", err)
	}
	s.invalidate(ctx, existing.ProviderID)
	return nil
}

func (s *Service) GetBreak(ctx context.Context, id string) (model.BreakException, error) {
	b, err := s.breaks.GetBreak(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.BreakException{}, apperr.NotFound("break %s not found", id)
	}
	if err != nil {
		return model.BreakException{}, fmt.Errorf("get break: %w", err)
	}
	return b, nil
}

func (s *Service) ListBreaks(ctx context.Context, providerID string) ([]model.BreakException, error) {
	if err := RequireRole(ctx, s.dir, providerID, model.RoleProvider); err != nil {
		return nil, err
	}
	return s.breaks.ListBreaks(ctx, providerID)
}

// FindConflicting returns the provider's breaks, recurring ones expanded onto
// date, that intersect [start, end) on that date.
func (s *Service) FindConflicting(ctx context.Context, providerID string, date time.Time, start, end model.TimeOfDay) ([]model.BreakException, error) {
	if providerID == "" {
		return nil, apperr.Validation("provider_id is required")
	}
	if !start.Valid() || !end.Valid() || start >= end {
		return nil, apperr.Validation("start must be before end")
	}
	list, err := s.breaks.ListBreaks(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	day := model.Date(date, s.loc)
	window := model.Interval{Start: start.On(day, s.loc), End: end.On(day, s.loc)}
	return breaks.Conflicting(list, window, s.loc)
}

// authorize requires providerID to be a provider account and actorID to be
// that provider or an admin.
func (s *Service) authorize(ctx context.Context, actorID, providerID string) error {
	if err := RequireRole(ctx, s.dir, providerID, model.RoleProvider); err != nil {
		return err
	}
	if actorID == providerID {
		return nil
	}
	if actorID != "" {
		actor, err := s.dir.Lookup(ctx, actorID)
		if err == nil && actor.Role == model.RoleAdmin {
			return nil
		}
	}
	return apperr.Unauthorized("user %q cannot manage the schedule of provider %s", actorID, providerID)
}

func (s *Service) invalidate(ctx context.Context, providerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, providerID); err != nil {
		s.logger.Warn("slot cache invalidation failed", "provider_id", providerID, "err", err)
	}
}

// RequireRole looks userID up and checks its role: NotFound for an unknown
// account, InvalidRole for the wrong one.
func RequireRole(ctx context.Context, dir directory.Directory, userID string, role model.Role) error {
	if userID == "" {
		return apperr.Validation("%s id is required", role)
	}
	u, err := dir.Lookup(ctx, userID)
	if errors.Is(err, directory.ErrUnknownUser) {
		return apperr.NotFound("%s %s not found", role, userID)
	}
	if err != nil {
		return fmt.Errorf("lookup %s: %w", userID, err)
	}
	if u.Role != role {
		return apperr.New(apperr.KindInvalidRole, "user %s is a %s, not a %s", userID, u.Role, role)
	}
	return nil
}
