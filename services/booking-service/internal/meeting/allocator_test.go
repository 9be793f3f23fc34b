package meeting

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func TestLinkAllocator(t *testing.T) {
	a := NewLinkAllocator("https://meet.example.com/rooms/")
	ref, err := a.Allocate(context.Background(), model.Appointment{ID: "a1"})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !strings.HasPrefix(ref, "https://meet.example.com/rooms/") || strings.Contains(ref, "rooms//") {
		t.Fatalf("unexpected ref %q", ref)
	}
	other, _ := a.Allocate(context.Background(), model.Appointment{ID: "a1"})
	if other == ref {
		t.Fatalf("expected distinct refs, got %q twice", ref)
	}
}

func TestLinkAllocator_NotConfigured(t *testing.T) {
	_, err := NewLinkAllocator("  ").Allocate(context.Background(), model.Appointment{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
