package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// ErrUnknownUser is returned when the directory has no such account.
var ErrUnknownUser = errors.New("unknown user")

// Directory answers who a user is and which role they hold.
type Directory interface {
	Lookup(ctx context.Context, userID string) (model.User, error)
}

// Static is a fixed set of users keyed by id.
type Static map[string]model.User

func NewStatic(users ...model.User) Static {
	s := make(Static, len(users))
	for _, u := range users {
		s[u.ID] = u
	}
	return s
}

func (s Static) Lookup(_ context.Context, userID string) (model.User, error) {
	u, ok := s[userID]
	if !ok {
		return model.User{}, ErrUnknownUser
	}
	return u, nil
}

// Projection reads the local copy of the identity service's users, kept
// current by the identity consumer.
type Projection struct {
	users storage.UserStore
}

func NewProjection(users storage.UserStore) *Projection {
	return &Projection{users: users}
}

func (p *Projection) Lookup(ctx context.Context, userID string) (model.User, error) {
	u, err := p.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.User{}, ErrUnknownUser
	}
	if err != nil {
		return model.User{}, fmt.Errorf("directory projection: %w", err)
	}
	return u, nil
}
