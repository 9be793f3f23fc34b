package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// These tests need a throwaway Postgres; they skip unless TEST_DATABASE_URL is set.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, url, db.Options{MaxConns: 20})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, Migrations, MigrationsDir).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(pool)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	migs, err := db.NewMigrator(nil, Migrations, MigrationsDir).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(migs) == 0 || migs[0].Version != 1 {
		t.Fatalf("expected migration 001, got %+v", migs)
	}
}

func TestPostgres_UpsertRule(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	provider := "prov-" + uuid.NewString()

	first, err := s.UpsertRule(ctx, model.AvailabilityRule{ProviderID: provider, DayOfWeek: time.Monday, Start: 540, End: 720, SlotDuration: 30 * time.Minute})
	if err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	second, err := s.UpsertRule(ctx, model.AvailabilityRule{ProviderID: provider, DayOfWeek: time.Monday, Start: 600, End: 720, SlotDuration: 15 * time.Minute, Gap: 5 * time.Minute})
	if err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected in-place update, got ids %s and %s", first.ID, second.ID)
	}
	got, ok, err := s.FindActiveRule(ctx, provider, time.Monday)
	if err != nil || !ok {
		t.Fatalf("FindActiveRule: ok=%v err=%v", ok, err)
	}
	if got.Start != 600 || got.Gap != 5*time.Minute {
		t.Fatalf("unexpected rule %+v", got)
	}
}

func TestPostgres_ConcurrentBookingsOneWinner(t *testing.T) {
	s := openTestStore(t)
	provider := "prov-" + uuid.NewString()
	start := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.WithProviderLock(context.Background(), provider, func(ctx context.Context, tx storage.BookingTx) error {
				_, err := tx.InsertAppointment(ctx, model.Appointment{
					RequesterID: "req", ProviderID: provider,
					StartAt:  start.Add(time.Duration(i) * time.Minute),
					Duration: 30 * time.Minute,
					Status:   model.StatusPending, Channel: model.ChannelPhone,
				})
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, storage.ErrOverlap):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestPostgres_UpdateStatusCompareAndSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	provider := "prov-" + uuid.NewString()

	var appt model.Appointment
	err := s.WithProviderLock(ctx, provider, func(ctx context.Context, tx storage.BookingTx) error {
		var err error
		appt, err = tx.InsertAppointment(ctx, model.Appointment{
			RequesterID: "req", ProviderID: provider,
			StartAt: time.Date(2030, 1, 8, 9, 0, 0, 0, time.UTC), Duration: time.Hour,
			Status: model.StatusPending, Channel: model.ChannelOnline,
		})
		return err
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	ref := "https://meet.example/x"
	got, err := s.UpdateStatus(ctx, appt.ID, storage.StatusChange{From: model.StatusPending, To: model.StatusConfirmed, At: time.Now(), MeetingRef: &ref})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.MeetingRef == nil || *got.MeetingRef != ref || got.ConfirmedAt == nil {
		t.Fatalf("unexpected appointment %+v", got)
	}
	if _, err := s.UpdateStatus(ctx, appt.ID, storage.StatusChange{From: model.StatusPending, To: model.StatusCancelled, At: time.Now()}); !errors.Is(err, storage.ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
	if _, err := s.UpdateStatus(ctx, uuid.NewString(), storage.StatusChange{From: model.StatusPending, To: model.StatusCancelled, At: time.Now()}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
