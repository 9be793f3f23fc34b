package slotcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Minute, "test-slots"), mr
}

func mondaySlots() []model.Slot {
	start := time.Date(2025, 8, 25, 9, 0, 0, 0, time.UTC)
	return []model.Slot{{ProviderID: "p1", Start: start, End: start.Add(30 * time.Minute)}}
}

func TestKeys(t *testing.T) {
	c := New(nil, 0, "")
	if got := c.versionKey("p1"); got != "slots:ver:p1" {
		t.Fatalf("unexpected version key %q", got)
	}
	if got := c.entryKey("p1", "3", "2025-08-25:2025-08-25:0"); got != "slots:data:p1:3:2025-08-25:2025-08-25:0" {
		t.Fatalf("unexpected entry key %q", got)
	}
	if c.ttl != 5*time.Minute {
		t.Fatalf("expected default ttl, got %s", c.ttl)
	}
}

func TestCache_RoundTripAndInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, version, ok, err := c.Get(ctx, "p1", "k")
	if err != nil || ok || version != "0" {
		t.Fatalf("expected miss at version 0, got version=%q ok=%v err=%v", version, ok, err)
	}
	if err := c.Put(ctx, "p1", version, "k", mondaySlots()); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _, ok, err := c.Get(ctx, "p1", "k")
	if err != nil || !ok || len(got) != 1 || !got[0].Start.Equal(mondaySlots()[0].Start) {
		t.Fatalf("expected hit, got %v ok=%v err=%v", got, ok, err)
	}
	if ttl := mr.TTL("test-slots:data:p1:0:k"); ttl != time.Minute {
		t.Fatalf("expected entry ttl of 1m, got %s", ttl)
	}

	if err := c.Invalidate(ctx, "p1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, version, ok, err = c.Get(ctx, "p1", "k")
	if err != nil || ok || version != "1" {
		t.Fatalf("expected miss at version 1, got version=%q ok=%v err=%v", version, ok, err)
	}
}

func TestCache_PutUnderStaleVersionIsNeverRead(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, version, _, err := c.Get(ctx, "p1", "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// A booking commits and invalidates while the list is being generated.
	if err := c.Invalidate(ctx, "p1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Put(ctx, "p1", version, "k", mondaySlots()); err != nil {
		t.Fatalf("put: %v", err)
	}

	if got, _, ok, err := c.Get(ctx, "p1", "k"); err != nil || ok {
		t.Fatalf("stale list must not be served, got %v ok=%v err=%v", got, ok, err)
	}
}

func TestCache_PutRequiresVersion(t *testing.T) {
	c, _ := newTestCache(t)
	if err := c.Put(context.Background(), "p1", "", "k", mondaySlots()); err == nil {
		t.Fatalf("expected error without version")
	}
}
