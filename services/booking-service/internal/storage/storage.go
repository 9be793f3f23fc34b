package storage

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrOverlap means the store itself refused an overlapping active appointment.
	ErrOverlap = errors.New("overlapping appointment")
	// ErrStatusChanged means a compare-and-set on status lost to another writer.
	ErrStatusChanged = errors.New("appointment status changed")
	// ErrTxConflict is a commit-time conflict (serialization, deadlock) worth retrying.
	ErrTxConflict = errors.New("transaction conflict")
)

type RuleStore interface {
	// UpsertRule replaces the active rule for (provider, weekday) or creates it.
	UpsertRule(ctx context.Context, r model.AvailabilityRule) (model.AvailabilityRule, error)
	FindActiveRule(ctx context.Context, providerID string, day time.Weekday) (model.AvailabilityRule, bool, error)
	ListRules(ctx context.Context, providerID string) ([]model.AvailabilityRule, error)
	DeleteRule(ctx context.Context, providerID string, day time.Weekday) error
}

type BreakStore interface {
	CreateBreak(ctx context.Context, b model.BreakException) (model.BreakException, error)
	UpdateBreak(ctx context.Context, b model.BreakException) (model.BreakException, error)
	DeleteBreak(ctx context.Context, providerID, id string) error
	GetBreak(ctx context.Context, id string) (model.BreakException, error)
	ListBreaks(ctx context.Context, providerID string) ([]model.BreakException, error)
}

type AppointmentQuery struct {
	ProviderID  string
	RequesterID string
	Limit       int
}

// StatusChange is applied only if the stored status still equals From.
type StatusChange struct {
	From         model.Status
	To           model.Status
	At           time.Time
	CancelReason string
	CancelledBy  string
	MeetingRef   *string
}

type AppointmentStore interface {
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	// ListActiveAppointments returns PENDING/CONFIRMED appointments intersecting [from, to).
	ListActiveAppointments(ctx context.Context, providerID string, from, to time.Time) ([]model.Appointment, error)
	ListAppointments(ctx context.Context, q AppointmentQuery) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, ch StatusChange) (model.Appointment, error)
}

// BookingTx is a provider's schedule seen while that provider's booking lock is held.
type BookingTx interface {
	conflict.Source
	InsertAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error)
}

type Booker interface {
	// WithProviderLock runs fn with exclusive booking rights for providerID.
	// Writes made through tx commit only if fn returns nil.
	WithProviderLock(ctx context.Context, providerID string, fn func(ctx context.Context, tx BookingTx) error) error
}

type UserStore interface {
	UpsertUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
}

type Store interface {
	RuleStore
	BreakStore
	AppointmentStore
	Booker
	UserStore
}
