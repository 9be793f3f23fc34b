package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

type Store struct {
	pool *db.Pool
}

var _ storage.Store = (*Store)(nil)

func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// WithProviderLock opens a transaction and takes a transaction-scoped
// advisory lock on the provider, so concurrent bookings for the same
// provider run one after another. The exclusion constraint on
// appointments backs this up for writers that skip the lock.
func (s *Store) WithProviderLock(ctx context.Context, providerID string, fn func(ctx context.Context, tx storage.BookingTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "booking:"+providerID); err != nil {
		return classify(err)
	}
	if err := fn(ctx, &bookingTx{q: tx}); err != nil {
		return classify(err)
	}
	return classify(tx.Commit(ctx))
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsExclusionViolation(err):
		return fmt.Errorf("%w: %v", storage.ErrOverlap, err)
	case db.IsRetryable(err):
		return fmt.Errorf("%w: %v", storage.ErrTxConflict, err)
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

type bookingTx struct {
	q db.Querier
}

func (t *bookingTx) FindActiveRule(ctx context.Context, providerID string, day time.Weekday) (model.AvailabilityRule, bool, error) {
	return findActiveRule(ctx, t.q, providerID, day)
}

func (t *bookingTx) ListBreaks(ctx context.Context, providerID string) ([]model.BreakException, error) {
	return listBreaks(ctx, t.q, providerID)
}

func (t *bookingTx) ListActiveAppointments(ctx context.Context, providerID string, from, to time.Time) ([]model.Appointment, error) {
	return listActiveAppointments(ctx, t.q, providerID, from, to)
}

func (t *bookingTx) InsertAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	out, err := insertAppointment(ctx, t.q, a)
	return out, classify(err)
}
