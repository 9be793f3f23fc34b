package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const ruleColumns = `id::text, provider_id, day_of_week, start_minute, end_minute, slot_minutes, gap_minutes, max_per_day, active, created_at, updated_at`

func scanRule(row pgx.Row) (model.AvailabilityRule, error) {
	var r model.AvailabilityRule
	var day, start, end, slot, gap int
	if err := row.Scan(&r.ID, &r.ProviderID, &day, &start, &end, &slot, &gap, &r.MaxPerDay, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.AvailabilityRule{}, err
	}
	r.DayOfWeek = time.Weekday(day)
	r.Start = model.TimeOfDay(start)
	r.End = model.TimeOfDay(end)
	r.SlotDuration = time.Duration(slot) * time.Minute
	r.Gap = time.Duration(gap) * time.Minute
	return r, nil
}

func (s *Store) UpsertRule(ctx context.Context, r model.AvailabilityRule) (model.AvailabilityRule, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO availability_rules
			(provider_id, day_of_week, start_minute, end_minute, slot_minutes, gap_minutes, max_per_day, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		ON CONFLICT (provider_id, day_of_week) WHERE active
		DO UPDATE SET start_minute = EXCLUDED.start_minute,
		              end_minute = EXCLUDED.end_minute,
		              slot_minutes = EXCLUDED.slot_minutes,
		              gap_minutes = EXCLUDED.gap_minutes,
		              max_per_day = EXCLUDED.max_per_day,
		              updated_at = now()
		RETURNING `+ruleColumns,
		r.ProviderID, int(r.DayOfWeek), int(r.Start), int(r.End),
		int(r.SlotDuration/time.Minute), int(r.Gap/time.Minute), r.MaxPerDay)
	return scanRule(row)
}

func (s *Store) FindActiveRule(ctx context.Context, providerID string, day time.Weekday) (model.AvailabilityRule, bool, error) {
	return findActiveRule(ctx, s.pool, providerID, day)
}

func findActiveRule(ctx context.Context, q db.Querier, providerID string, day time.Weekday) (model.AvailabilityRule, bool, error) {
	r, err := scanRule(q.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE provider_id = $1 AND day_of_week = $2 AND active
	`, providerID, int(day)))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.AvailabilityRule{}, false, nil
		}
		return model.AvailabilityRule{}, false, err
	}
	return r, true, nil
}

func (s *Store) ListRules(ctx context.Context, providerID string) ([]model.AvailabilityRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE provider_id = $1 AND active
		ORDER BY day_of_week ASC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteRule(ctx context.Context, providerID string, day time.Weekday) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM availability_rules
		WHERE provider_id = $1 AND day_of_week = $2
	`, providerID, int(day))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
