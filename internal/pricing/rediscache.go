package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedLookup is a read-through Redis cache in front of another Lookup.
// Prices change rarely relative to how often orders reference them, so a
// short TTL takes most of the load off the upstream source without letting
// stale prices live long.
//
// Cache failures are never fatal: on any Redis error the lookup falls
// through to the source and the error is only logged. Not-found answers are
// not cached.
type CachedLookup struct {
	source Lookup
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCachedLookup(source Lookup, client *redis.Client, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		source: source,
		client: client,
		ttl:    ttl,
		prefix: "pricing:product:",
	}
}

func (c *CachedLookup) Lookup(ctx context.Context, productID string) (ProductDetails, error) {
	key := c.prefix + productID

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var p ProductDetails
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return p, nil
		}
		// Corrupt cache entry: fall through to the source and overwrite.
		slog.WarnContext(ctx, "pricing cache entry unreadable, refetching", "key", key)
	case errors.Is(err, redis.Nil):
		// cache miss
	default:
		slog.WarnContext(ctx, "pricing cache read failed", "key", key, "error", err)
	}

	p, err := c.source.Lookup(ctx, productID)
	if err != nil {
		return ProductDetails{}, err
	}

	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			slog.WarnContext(ctx, "pricing cache write failed", "key", key, "error", setErr)
		}
	}
	return p, nil
}

// NewRedisClient builds a go-redis client for the given address. Kept here
// so the composition root does not import go-redis directly.
func NewRedisClient(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pricing: redis ping %s: %w", addr, err)
	}
	return client, nil
}
