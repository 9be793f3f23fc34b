package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const appointmentColumns = `id::text, requester_id, provider_id, start_at, end_at, status, channel, meeting_ref, notes,
	COALESCE(cancel_reason, ''), COALESCE(cancelled_by, ''), cancelled_at, confirmed_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var end time.Time
	var status, channel string
	err := row.Scan(
		&a.ID,
		&a.RequesterID,
		&a.ProviderID,
		&a.StartAt,
		&end,
		&status,
		&channel,
		&a.MeetingRef,
		&a.Notes,
		&a.CancelReason,
		&a.CancelledBy,
		&a.CancelledAt,
		&a.ConfirmedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Duration = end.Sub(a.StartAt)
	a.Status = model.Status(status)
	a.Channel = model.Channel(channel)
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func insertAppointment(ctx context.Context, q db.Querier, a model.Appointment) (model.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return scanAppointment(q.QueryRow(ctx, `
		INSERT INTO appointments
			(id, requester_id, provider_id, start_at, end_at, status, channel, meeting_ref, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+appointmentColumns,
		a.ID, a.RequesterID, a.ProviderID, a.StartAt, a.EndAt(), string(a.Status), string(a.Channel), a.MeetingRef, a.Notes))
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, storage.ErrNotFound
	}
	a, err := scanAppointment(s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	return a, notFound(err)
}

func (s *Store) ListActiveAppointments(ctx context.Context, providerID string, from, to time.Time) ([]model.Appointment, error) {
	return listActiveAppointments(ctx, s.pool, providerID, from, to)
}

func listActiveAppointments(ctx context.Context, q db.Querier, providerID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
			AND status IN ('PENDING', 'CONFIRMED')
			AND start_at < $3
			AND end_at > $2
		ORDER BY start_at ASC
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (s *Store) ListAppointments(ctx context.Context, q storage.AppointmentQuery) ([]model.Appointment, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR provider_id = $1)
			AND ($2 = '' OR requester_id = $2)
		ORDER BY start_at DESC
		LIMIT $3
	`, q.ProviderID, q.RequesterID, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// UpdateStatus is a compare-and-set on status. A miss is either
// ErrNotFound or ErrStatusChanged.
func (s *Store) UpdateStatus(ctx context.Context, id string, ch storage.StatusChange) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, storage.ErrNotFound
	}
	a, err := scanAppointment(s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3::text,
			updated_at = $4,
			confirmed_at = CASE WHEN $3::text = 'CONFIRMED' THEN $4 ELSE confirmed_at END,
			meeting_ref = COALESCE($5::text, meeting_ref),
			cancelled_at = CASE WHEN $3::text = 'CANCELLED' THEN $4 ELSE cancelled_at END,
			cancel_reason = CASE WHEN $3::text = 'CANCELLED' THEN $6::text ELSE cancel_reason END,
			cancelled_by = CASE WHEN $3::text = 'CANCELLED' THEN $7::text ELSE cancelled_by END
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns,
		id, string(ch.From), string(ch.To), ch.At, ch.MeetingRef, ch.CancelReason, ch.CancelledBy))
	if err == nil {
		return a, nil
	}
	if err != pgx.ErrNoRows {
		return model.Appointment{}, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return model.Appointment{}, err
	}
	if !exists {
		return model.Appointment{}, storage.ErrNotFound
	}
	return model.Appointment{}, storage.ErrStatusChanged
}
