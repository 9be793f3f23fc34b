package postgres

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// UpsertUser maintains the local projection of the identity service's users.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO directory_users (id, role, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET role = EXCLUDED.role,
		              display_name = EXCLUDED.display_name,
		              updated_at = now()
	`, u.ID, string(u.Role), u.DisplayName)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT id, role, display_name
		FROM directory_users
		WHERE id = $1
	`, id).Scan(&u.ID, &role, &u.DisplayName)
	if err != nil {
		return model.User{}, notFound(err)
	}
	u.Role = model.Role(role)
	return u, nil
}
