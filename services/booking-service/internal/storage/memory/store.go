package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type ruleKey struct {
	providerID string
	day        time.Weekday
}

// Store keeps everything in process memory. Booking for one provider is
// serialised by a per-provider mutex, mirroring the advisory lock the
// Postgres store takes.
type Store struct {
	mu     sync.RWMutex
	rules  map[ruleKey]model.AvailabilityRule
	breaks map[string]model.BreakException
	appts  map[string]model.Appointment
	users  map[string]model.User

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		rules:  make(map[ruleKey]model.AvailabilityRule),
		breaks: make(map[string]model.BreakException),
		appts:  make(map[string]model.Appointment),
		users:  make(map[string]model.User),
		locks:  make(map[string]*sync.Mutex),
		now:    time.Now,
	}
}

func (s *Store) UpsertRule(_ context.Context, r model.AvailabilityRule) (model.AvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ruleKey{r.ProviderID, r.DayOfWeek}
	now := s.now()
	if existing, ok := s.rules[key]; ok {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		r.ID = uuid.NewString()
		r.CreatedAt = now
	}
	r.Active = true
	r.UpdatedAt = now
	s.rules[key] = r
	return r, nil
}

func (s *Store) FindActiveRule(_ context.Context, providerID string, day time.Weekday) (model.AvailabilityRule, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleKey{providerID, day}]
	if !ok || !r.Active {
		return model.AvailabilityRule{}, false, nil
	}
	return r, true, nil
}

func (s *Store) ListRules(_ context.Context, providerID string) ([]model.AvailabilityRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AvailabilityRule
	for k, r := range s.rules {
		if k.providerID == providerID && r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (s *Store) DeleteRule(_ context.Context, providerID string, day time.Weekday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ruleKey{providerID, day}
	if _, ok := s.rules[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.rules, key)
	return nil
}

func (s *Store) CreateBreak(_ context.Context, b model.BreakException) (model.BreakException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.NewString()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.breaks[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBreak(_ context.Context, b model.BreakException) (model.BreakException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.breaks[b.ID]
	if !ok || existing.ProviderID != b.ProviderID {
		return model.BreakException{}, storage.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = s.now()
	s.breaks[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBreak(_ context.Context, providerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.breaks[id]
	if !ok || existing.ProviderID != providerID {
		return storage.ErrNotFound
	}
	delete(s.breaks, id)
	return nil
}

func (s *Store) GetBreak(_ context.Context, id string) (model.BreakException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.breaks[id]
	if !ok {
		return model.BreakException{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBreaks(_ context.Context, providerID string) ([]model.BreakException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BreakException
	for _, b := range s.breaks {
		if b.ProviderID == providerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListActiveAppointments(_ context.Context, providerID string, from, to time.Time) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(providerID, model.Interval{Start: from, End: to}), nil
}

func (s *Store) activeLocked(providerID string, window model.Interval) []model.Appointment {
	var out []model.Appointment
	for _, a := range s.appts {
		if a.ProviderID == providerID && a.Status.Active() && a.Interval().Overlaps(window) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

func (s *Store) ListAppointments(_ context.Context, q storage.AppointmentQuery) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, a := range s.appts {
		if q.ProviderID != "" && a.ProviderID != q.ProviderID {
			continue
		}
		if q.RequesterID != "" && a.RequesterID != q.RequesterID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, ch storage.StatusChange) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	if a.Status != ch.From {
		return model.Appointment{}, storage.ErrStatusChanged
	}
	at := ch.At
	a.Status = ch.To
	a.UpdatedAt = at
	switch ch.To {
	case model.StatusConfirmed:
		a.ConfirmedAt = &at
		if ch.MeetingRef != nil {
			ref := *ch.MeetingRef
			a.MeetingRef = &ref
		}
	case model.StatusCancelled:
		a.CancelledAt = &at
		a.CancelReason = ch.CancelReason
		a.CancelledBy = ch.CancelledBy
	}
	s.appts[id] = a
	return a, nil
}

func (s *Store) UpsertUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) providerLock(providerID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[providerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[providerID] = l
	}
	return l
}

func (s *Store) WithProviderLock(ctx context.Context, providerID string, fn func(ctx context.Context, tx storage.BookingTx) error) error {
	l := s.providerLock(providerID)
	l.Lock()
	defer l.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &bookingTx{store: s, providerID: providerID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	// Staged inserts become visible only when fn succeeds.
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range tx.staged {
		if len(s.activeLocked(a.ProviderID, a.Interval())) > 0 {
			return storage.ErrOverlap
		}
	}
	for _, a := range tx.staged {
		s.appts[a.ID] = a
	}
	return nil
}

type bookingTx struct {
	store      *Store
	providerID string
	staged     []model.Appointment
}

func (t *bookingTx) FindActiveRule(ctx context.Context, providerID string, day time.Weekday) (model.AvailabilityRule, bool, error) {
	return t.store.FindActiveRule(ctx, providerID, day)
}

func (t *bookingTx) ListBreaks(ctx context.Context, providerID string) ([]model.BreakException, error) {
	return t.store.ListBreaks(ctx, providerID)
}

func (t *bookingTx) ListActiveAppointments(ctx context.Context, providerID string, from, to time.Time) ([]model.Appointment, error) {
	out, err := t.store.ListActiveAppointments(ctx, providerID, from, to)
	if err != nil {
		return nil, err
	}
	window := model.Interval{Start: from, End: to}
	for _, a := range t.staged {
		if a.ProviderID == providerID && a.Interval().Overlaps(window) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *bookingTx) InsertAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if a.ProviderID != t.providerID {
		return model.Appointment{}, fmt.Errorf("appointment for provider %s inserted under the lock of %s", a.ProviderID, t.providerID)
	}
	clash, err := t.ListActiveAppointments(ctx, a.ProviderID, a.StartAt, a.EndAt())
	if err != nil {
		return model.Appointment{}, err
	}
	if len(clash) > 0 {
		return model.Appointment{}, storage.ErrOverlap
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := t.store.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	t.staged = append(t.staged, a)
	return a, nil
}
