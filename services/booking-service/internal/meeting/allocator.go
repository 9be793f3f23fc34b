package meeting

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var ErrNotConfigured = errors.New("meeting base url not configured")

// Allocator hands out a join reference for an online appointment.
type Allocator interface {
	Allocate(ctx context.Context, appt model.Appointment) (string, error)
}

// LinkAllocator builds "<base>/<uuid>" links. A room id is random so links
// cannot be guessed from appointment ids.
type LinkAllocator struct {
	baseURL string
}

func NewLinkAllocator(baseURL string) *LinkAllocator {
	return &LinkAllocator{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (a *LinkAllocator) Allocate(_ context.Context, _ model.Appointment) (string, error) {
	if a.baseURL == "" {
		return "", ErrNotConfigured
	}
	return a.baseURL + "/" + uuid.NewString(), nil
}
