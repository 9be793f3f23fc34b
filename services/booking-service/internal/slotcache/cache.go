package slotcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// Cache keeps generated slot lists in Redis. Entries live under a
// per-provider version; Invalidate bumps the version so every older entry
// stops being read and ages out with its TTL.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// readScript resolves the current version and reads the entry under it in
// one round trip.
var readScript = redis.NewScript(`
local version = redis.call("GET", KEYS[1])
if not version then
  version = "0"
end
return {version, redis.call("GET", ARGV[1] .. version .. ARGV[2])}
`)

func New(rdb *redis.Client, ttl time.Duration, prefix string) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "slots"
	}
	return &Cache{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *Cache) versionKey(providerID string) string {
	return c.prefix + ":ver:" + providerID
}

func (c *Cache) entryPrefix(providerID string) string {
	return c.prefix + ":data:" + providerID + ":"
}

func (c *Cache) entryKey(providerID, version, key string) string {
	return c.entryPrefix(providerID) + version + ":" + key
}

// Get reads the entry under the provider's current version. The version is
// returned on a miss as well: a list generated after the miss must be Put
// under it, so an Invalidate that lands during generation leaves the list
// filed under a version nobody reads.
func (c *Cache) Get(ctx context.Context, providerID, key string) ([]model.Slot, string, bool, error) {
	res, err := readScript.Run(ctx, c.rdb, []string{c.versionKey(providerID)}, c.entryPrefix(providerID), ":"+key).Slice()
	if err != nil {
		return nil, "", false, err
	}
	if len(res) == 0 {
		return nil, "", false, errors.New("unexpected slot cache reply")
	}
	version, ok := res[0].(string)
	if !ok {
		return nil, "", false, errors.New("unexpected slot cache version")
	}
	if len(res) < 2 || res[1] == nil {
		return nil, version, false, nil
	}
	raw, ok := res[1].(string)
	if !ok {
		return nil, "", false, errors.New("unexpected slot cache payload")
	}
	var slots []model.Slot
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil, "", false, err
	}
	return slots, version, true, nil
}

// Put stores slots under version, the value Get returned before they were
// generated.
func (c *Cache) Put(ctx context.Context, providerID, version, key string, slots []model.Slot) error {
	if version == "" {
		return errors.New("slot cache version is required")
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.entryKey(providerID, version, key), payload, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, providerID string) error {
	return c.rdb.Incr(ctx, c.versionKey(providerID)).Err()
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
