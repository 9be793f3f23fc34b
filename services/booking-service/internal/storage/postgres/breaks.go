package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const breakColumns = `id::text, provider_id, break_date, start_minute, end_minute, reason, recurring, pattern, created_at, updated_at`

func scanBreak(row pgx.Row) (model.BreakException, error) {
	var b model.BreakException
	var start, end int
	if err := row.Scan(&b.ID, &b.ProviderID, &b.Date, &start, &end, &b.Reason, &b.Recurring, &b.Pattern, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.BreakException{}, err
	}
	b.Start = model.TimeOfDay(start)
	b.End = model.TimeOfDay(end)
	return b, nil
}

func (s *Store) CreateBreak(ctx context.Context, b model.BreakException) (model.BreakException, error) {
	return scanBreak(s.pool.QueryRow(ctx, `
		INSERT INTO break_exceptions (provider_id, break_date, start_minute, end_minute, reason, recurring, pattern)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7)
		RETURNING `+breakColumns,
		b.ProviderID, b.Date.Format("2006-01-02"), int(b.Start), int(b.End), b.Reason, b.Recurring, b.Pattern))
}

func (s *Store) UpdateBreak(ctx context.Context, b model.BreakException) (model.BreakException, error) {
	if _, err := uuid.Parse(b.ID); err != nil {
		return model.BreakException{}, storage.ErrNotFound
	}
	out, err := scanBreak(s.pool.QueryRow(ctx, `
		UPDATE break_exceptions
		SET break_date = $3::date,
			start_minute = $4,
			end_minute = $5,
			reason = $6,
			recurring = $7,
			pattern = $8,
			updated_at = now()
		WHERE id = $1 AND provider_id = $2
		RETURNING `+breakColumns,
		b.ID, b.ProviderID, b.Date.Format("2006-01-02"), int(b.Start), int(b.End), b.Reason, b.Recurring, b.Pattern))
	return out, notFound(err)
}

func (s *Store) DeleteBreak(ctx context.Context, providerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM break_exceptions WHERE id = $1 AND provider_id = $2`, id, providerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetBreak(ctx context.Context, id string) (model.BreakException, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.BreakException{}, storage.ErrNotFound
	}
	b, err := scanBreak(s.pool.QueryRow(ctx, `SELECT `+breakColumns+` FROM break_exceptions WHERE id = $1`, id))
	return b, notFound(err)
}

func (s *Store) ListBreaks(ctx context.Context, providerID string) ([]model.BreakException, error) {
	return listBreaks(ctx, s.pool, providerID)
}

func listBreaks(ctx context.Context, q db.Querier, providerID string) ([]model.BreakException, error) {
	rows, err := q.Query(ctx, `
		SELECT `+breakColumns+`
		FROM break_exceptions
		WHERE provider_id = $1
		ORDER BY break_date ASC, start_minute ASC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BreakException
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
