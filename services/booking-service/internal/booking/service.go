package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/meeting"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/nlparse"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxAttempts    = 3
	maxTransitionAttempts = 3
	// MaxSlotRangeDays bounds one availability query.
	MaxSlotRangeDays = 62
)

// Notifier is told about appointment changes after they commit. Delivery is
// best effort.
type Notifier interface {
	Notify(ctx context.Context, appt model.Appointment, kind model.EventKind) error
}

// SlotCache stores generated slot lists per provider. Get reports the cache
// version it read; Put files a list under that version so an invalidation
// racing with generation cannot resurrect stale slots.
type SlotCache interface {
	Get(ctx context.Context, providerID, key string) (slots []model.Slot, version string, ok bool, err error)
	Put(ctx context.Context, providerID, version, key string, slots []model.Slot) error
	Invalidate(ctx context.Context, providerID string) error
}

type Deps struct {
	Store     storage.Store
	Directory directory.Directory
	Meetings  meeting.Allocator
	Notifier  Notifier
	Cache     SlotCache
	Location  *time.Location
	Clock     func() time.Time
	// MaxAttempts bounds retries of a booking transaction that hit a
	// commit-time conflict.
	MaxAttempts int
	Logger      *slog.Logger
}

// Service books appointments and moves them through their lifecycle.
type Service struct {
	store       storage.Store
	dir         directory.Directory
	meetings    meeting.Allocator
	notifier    Notifier
	cache       SlotCache
	loc         *time.Location
	now         func() time.Time
	maxAttempts int
	logger      *slog.Logger

	detector *conflict.Detector
	resolver *nlparse.Resolver
	tracer   trace.Tracer
}

func NewService(d Deps) *Service {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		store:       d.Store,
		dir:         d.Directory,
		meetings:    d.Meetings,
		notifier:    d.Notifier,
		cache:       d.Cache,
		loc:         d.Location,
		now:         d.Clock,
		maxAttempts: d.MaxAttempts,
		logger:      d.Logger,
		detector:    conflict.NewDetector(d.Location),
		resolver:    nlparse.New(d.Location, d.Clock),
		tracer:      otel.Tracer("booking-service"),
	}
}

func (s *Service) Location() *time.Location { return s.loc }

// Resolve turns a date phrase and a time phrase into an instant.
func (s *Service) Resolve(datePhrase, timePhrase string) (time.Time, error) {
	return s.resolver.Resolve(datePhrase, timePhrase)
}

// CheckConflict reports whether [start, start+duration) is bookable now and
// what blocks it if not.
func (s *Service) CheckConflict(ctx context.Context, providerID string, start time.Time, duration time.Duration) (conflict.Result, error) {
	if providerID == "" {
		return conflict.Result{}, apperr.Validation("provider_id is required")
	}
	if duration <= 0 {
		return conflict.Result{}, apperr.Validation("duration must be positive")
	}
	return s.detector.Check(ctx, s.store, providerID, start.In(s.loc), duration)
}

func unavailable(start time.Time, duration time.Duration, reason conflict.Reason) error {
	return apperr.New(apperr.KindSlotUnavailable, "slot %s (%s) is unavailable: %s",
		start.Format(time.RFC3339), duration, reason)
}

// errBlocked carries a conflict found inside the booking transaction out of it.
type errBlocked struct {
	reason conflict.Reason
}

func (e errBlocked) Error() string { return string(e.reason) }

// Book resolves the request, checks the window and stores a PENDING
// appointment. The check and the insert run under the provider's booking
// lock so concurrent overlapping requests admit exactly one winner.
func (s *Service) Book(ctx context.Context, req model.BookingRequest) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.book", trace.WithAttributes(
		attribute.String("booking.provider_id", req.ProviderID),
		attribute.String("booking.requester_id", req.RequesterID),
	))
	defer span.End()

	appt, err := s.book(ctx, req)
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}
	span.SetAttributes(attribute.String("booking.appointment_id", appt.ID))

	s.afterCommit(ctx, appt, model.EventRequested, true)
	s.logger.Info("appointment requested",
		"appointment_id", appt.ID,
		"provider_id", appt.ProviderID,
		"requester_id", appt.RequesterID,
		"start_at", appt.StartAt.Format(time.RFC3339),
	)
	return appt, nil
}

func (s *Service) book(ctx context.Context, req model.BookingRequest) (model.Appointment, error) {
	start, err := s.startOf(req)
	if err != nil {
		return model.Appointment{}, err
	}
	if start.Before(s.now()) {
		return model.Appointment{}, apperr.Validation("start %s is in the past", start.Format(time.RFC3339))
	}
	if req.Duration < 0 {
		return model.Appointment{}, apperr.Validation("duration must be positive")
	}
	channel, err := model.ParseChannel(string(req.Channel))
	if err != nil {
		return model.Appointment{}, apperr.Wrap(apperr.KindValidation, err, "invalid channel")
	}

	if err := scheduling.RequireRole(ctx, s.dir, req.RequesterID, model.RoleRequester); err != nil {
		return model.Appointment{}, err
	}
	if err := scheduling.RequireRole(ctx, s.dir, req.ProviderID, model.RoleProvider); err != nil {
		return model.Appointment{}, err
	}

	duration := req.Duration
	if duration == 0 {
		rule, ok, err := s.store.FindActiveRule(ctx, req.ProviderID, start.Weekday())
		if err != nil {
			return model.Appointment{}, fmt.Errorf("find rule: %w", err)
		}
		if !ok {
			return model.Appointment{}, unavailable(start, duration, conflict.ReasonNoAvailability)
		}
		duration = rule.SlotDuration
	}

	// Cheap rejection before taking the provider lock.
	res, err := s.detector.Check(ctx, s.store, req.ProviderID, start, duration)
	if err != nil {
		return model.Appointment{}, err
	}
	if !res.Free {
		return model.Appointment{}, unavailable(start, duration, res.Reason)
	}

	candidate := model.Appointment{
		RequesterID: req.RequesterID,
		ProviderID:  req.ProviderID,
		StartAt:     start,
		Duration:    duration,
		Status:      model.StatusPending,
		Channel:     channel,
		Notes:       req.Notes,
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var created model.Appointment
		err := s.store.WithProviderLock(ctx, req.ProviderID, func(ctx context.Context, tx storage.BookingTx) error {
			res, err := s.detector.Check(ctx, tx, req.ProviderID, start, duration)
			if err != nil {
				return err
			}
			if !res.Free {
				return errBlocked{reason: res.Reason}
			}
			created, err = tx.InsertAppointment(ctx, candidate)
			return err
		})

		var blocked errBlocked
		switch {
		case err == nil:
			return created, nil
		case errors.As(err, &blocked):
			return model.Appointment{}, unavailable(start, duration, blocked.reason)
		case errors.Is(err, storage.ErrOverlap):
			return model.Appointment{}, unavailable(start, duration, conflict.ReasonAppointment)
		case errors.Is(err, storage.ErrTxConflict):
			s.logger.Warn("booking transaction conflict, retrying", "provider_id", req.ProviderID, "attempt", attempt)
			continue
		default:
			return model.Appointment{}, fmt.Errorf("book: %w", err)
		}
	}
	return model.Appointment{}, apperr.New(apperr.KindSlotUnavailable,
		"slot %s is contended, gave up after %d attempts", start.Format(time.RFC3339), s.maxAttempts)
}

func (s *Service) startOf(req model.BookingRequest) (time.Time, error) {
	if req.HasInstant() {
		return req.StartAt.In(s.loc), nil
	}
	if req.DatePhrase == "" && req.TimePhrase == "" {
		return time.Time{}, apperr.Validation("start_at or date and time phrases are required")
	}
	return s.resolver.Resolve(req.DatePhrase, req.TimePhrase)
}

// Confirm moves a PENDING appointment to CONFIRMED. Only the assigned
// provider may confirm. Online appointments get a meeting reference; if
// allocation fails the appointment is confirmed without one.
func (s *Service) Confirm(ctx context.Context, actorID, id string) (model.Appointment, error) {
	return s.transition(ctx, id, lifecycle.ActionConfirm, lifecycle.User(actorID), "")
}

// Cancel moves a PENDING or CONFIRMED appointment to CANCELLED on behalf of
// either participant, recording who cancelled and why.
func (s *Service) Cancel(ctx context.Context, actorID, id, reason string) (model.Appointment, error) {
	return s.transition(ctx, id, lifecycle.ActionCancel, lifecycle.User(actorID), reason)
}

func (s *Service) Complete(ctx context.Context, actor lifecycle.Actor, id string) (model.Appointment, error) {
	return s.transition(ctx, id, lifecycle.ActionComplete, actor, "")
}

func (s *Service) NoShow(ctx context.Context, actor lifecycle.Actor, id string) (model.Appointment, error) {
	return s.transition(ctx, id, lifecycle.ActionNoShow, actor, "")
}

func (s *Service) transition(ctx context.Context, id string, action lifecycle.Action, actor lifecycle.Actor, reason string) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking."+string(action), trace.WithAttributes(
		attribute.String("booking.appointment_id", id),
	))
	defer span.End()

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		appt, err := s.load(ctx, id)
		if err != nil {
			span.RecordError(err)
			return model.Appointment{}, err
		}
		to, err := lifecycle.Transition(appt, action, actor)
		if err != nil {
			span.RecordError(err)
			return model.Appointment{}, err
		}

		ch := storage.StatusChange{From: appt.Status, To: to, At: s.now()}
		switch action {
		case lifecycle.ActionCancel:
			ch.CancelReason = reason
			ch.CancelledBy = actor.UserID
		case lifecycle.ActionConfirm:
			ch.MeetingRef = s.allocateMeeting(ctx, appt)
		}

		updated, err := s.store.UpdateStatus(ctx, id, ch)
		switch {
		case err == nil:
			kind, _ := model.EventFor(updated.Status)
			s.afterCommit(ctx, updated, kind, !updated.Status.Active())
			s.logger.Info("appointment status changed",
				"appointment_id", id,
				"from", string(appt.Status),
				"to", string(updated.Status),
				"actor", actor.UserID,
				"system", actor.System,
			)
			return updated, nil
		case errors.Is(err, storage.ErrStatusChanged):
			continue
		case errors.Is(err, storage.ErrNotFound):
			return model.Appointment{}, apperr.NotFound("appointment %s not found", id)
		default:
			span.RecordError(err)
			return model.Appointment{}, fmt.Errorf("update status: %w", err)
		}
	}
	return model.Appointment{}, apperr.InvalidState("appointment %s is being changed concurrently", id)
}

func (s *Service) allocateMeeting(ctx context.Context, appt model.Appointment) *string {
	if appt.Channel != model.ChannelOnline || appt.MeetingRef != nil || s.meetings == nil {
		return nil
	}
	ref, err := s.meetings.Allocate(ctx, appt)
	if err != nil {
		s.logger.Warn("meeting allocation failed", "appointment_id", appt.ID, "err", err)
		return nil
	}
	return &ref
}

// afterCommit runs the side effects of a committed change. Failures are
// logged and never reach the caller.
func (s *Service) afterCommit(ctx context.Context, appt model.Appointment, kind model.EventKind, slotsChanged bool) {
	ctx = context.WithoutCancel(ctx)
	if s.notifier != nil && kind != "" {
		if err := s.notifier.Notify(ctx, appt, kind); err != nil {
			s.logger.Warn("notification failed", "appointment_id", appt.ID, "kind", string(kind), "err", err)
		}
	}
	if slotsChanged && s.cache != nil {
		if err := s.cache.Invalidate(ctx, appt.ProviderID); err != nil {
			s.logger.Warn("slot cache invalidation failed", "provider_id", appt.ProviderID, "err", err)
		}
	}
}

// Get returns the appointment if the actor takes part in it or is an admin.
func (s *Service) Get(ctx context.Context, actorID, id string) (model.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if actorID == appt.ProviderID || actorID == appt.RequesterID {
		return appt, nil
	}
	admin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !admin {
		return model.Appointment{}, apperr.Unauthorized("user %s is not a participant of appointment %s", actorID, id)
	}
	return appt, nil
}

func (s *Service) load(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Appointment{}, apperr.NotFound("appointment %s not found", id)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// List returns appointments filtered by provider and/or requester. The actor
// must be the provider or the requester named in the filter, or an admin.
func (s *Service) List(ctx context.Context, actorID string, q storage.AppointmentQuery) ([]model.Appointment, error) {
	if q.ProviderID == "" && q.RequesterID == "" {
		return nil, apperr.Validation("provider_id or requester_id is required")
	}
	if actorID == "" {
		return nil, apperr.Unauthorized("caller is required")
	}
	if actorID != q.ProviderID && actorID != q.RequesterID {
		admin, err := s.isAdmin(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, apperr.Unauthorized("user %s may only list own appointments", actorID)
		}
	}
	return s.store.ListAppointments(ctx, q)
}

// isAdmin treats unknown users as non-admins.
func (s *Service) isAdmin(ctx context.Context, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	u, err := s.dir.Lookup(ctx, actorID)
	if errors.Is(err, directory.ErrUnknownUser) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", actorID, err)
	}
	return u.Role == model.RoleAdmin, nil
}
