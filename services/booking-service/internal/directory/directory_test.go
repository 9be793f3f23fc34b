package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage/memory"
)

func TestStatic_Lookup(t *testing.T) {
	d := NewStatic(model.User{ID: "req-1", Role: model.RoleRequester})
	if u, err := d.Lookup(context.Background(), "req-1"); err != nil || u.Role != model.RoleRequester {
		t.Fatalf("unexpected lookup: %+v %v", u, err)
	}
	if _, err := d.Lookup(context.Background(), "nobody"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestProjection_Lookup(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if err := store.UpsertUser(ctx, model.User{ID: "prov-1", Role: model.RoleProvider}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	d := NewProjection(store)
	u, err := d.Lookup(ctx, "prov-1")
	if err != nil || u.Role != model.RoleProvider {
		t.Fatalf("unexpected lookup: %+v %v", u, err)
	}
	if _, err := d.Lookup(ctx, "prov-2"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}
