package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvbarbosa/destino-api/internal/bundle"
)

// DefaultTTL is how long a bundle stays servable after assembly.
const DefaultTTL = 3 * 24 * time.Hour

const keyPrefix = "cache:city:"

// Store wraps a Redis client and provides the TTL-keyed bundle store, with a
// parallel hit counter per city.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store with the default 3-day TTL.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, ttl: DefaultTTL}
}

// NewStoreWithTTL constructs a Store with a custom default TTL.
func NewStoreWithTTL(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// DefaultTTL returns the store's configured default TTL.
func (s *Store) DefaultTTL() time.Duration {
	return s.ttl
}

func key(cityID string) string {
	return keyPrefix + cityID
}

func hitsKey(cityID string) string {
	return keyPrefix + cityID + ":hits"
}

// Get retrieves the cached bundle for a city. A miss and a present-but-
// logically-expired bundle both report nil, nil. Every served bundle
// increments the city's hit counter (at-least-once; approximate counting
// is acceptable).
func (s *Store) Get(ctx context.Context, cityID string) (*bundle.Bundle, error) {
	val, err := s.client.Get(ctx, key(cityID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for city %s: %w", cityID, err)
	}

	var b bundle.Bundle
	if err := json.Unmarshal([]byte(val), &b); err != nil {
		return nil, fmt.Errorf("unmarshaling cached bundle for city %s: %w", cityID, err)
	}

	if b.IsExpired() {
		return nil, nil
	}

	if hits, err := s.client.Incr(ctx, hitsKey(cityID)).Result(); err == nil {
		b.HitCount = hits
	}

	return &b, nil
}

// Set stores a bundle with the given TTL (the store default when ttl <= 0).
func (s *Store) Set(ctx context.Context, cityID string, b *bundle.Bundle, ttl time.Duration) error {
	if b == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling bundle for city %s: %w", cityID, err)
	}

	if err := s.client.Set(ctx, key(cityID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set for city %s: %w", cityID, err)
	}
	return nil
}

// Exists reports whether a bundle is physically present for the city. It does
// not consult the bundle's logical expiry.
func (s *Store) Exists(ctx context.Context, cityID string) (bool, error) {
	n, err := s.client.Exists(ctx, key(cityID)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists for city %s: %w", cityID, err)
	}
	return n == 1, nil
}

// Delete removes the cached bundle and its hit counter.
func (s *Store) Delete(ctx context.Context, cityID string) error {
	if err := s.client.Del(ctx, key(cityID), hitsKey(cityID)).Err(); err != nil {
		return fmt.Errorf("cache delete for city %s: %w", cityID, err)
	}
	return nil
}

// RefreshTTL extends the physical expiry of a present bundle. Returns false
// when nothing is cached for the city.
func (s *Store) RefreshTTL(ctx context.Context, cityID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	ok, err := s.client.Expire(ctx, key(cityID), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache refresh ttl for city %s: %w", cityID, err)
	}
	return ok, nil
}

// Hits returns the accumulated hit count for a city.
func (s *Store) Hits(ctx context.Context, cityID string) (int64, error) {
	n, err := s.client.Get(ctx, hitsKey(cityID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache hits for city %s: %w", cityID, err)
	}
	return n, nil
}

// GetMany retrieves the cached bundles for the given cities in one pipelined
// round trip. Missing, broken, and logically expired entries are skipped.
// Bulk reads do not bump hit counters.
func (s *Store) GetMany(ctx context.Context, cityIDs []string) (map[string]*bundle.Bundle, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(cityIDs))
	for i, id := range cityIDs {
		cmds[i] = pipe.Get(ctx, key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache get many: %w", err)
	}

	out := make(map[string]*bundle.Bundle, len(cityIDs))
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			continue
		}
		var b bundle.Bundle
		if err := json.Unmarshal([]byte(val), &b); err != nil {
			continue
		}
		if b.IsExpired() {
			continue
		}
		out[cityIDs[i]] = &b
	}
	return out, nil
}

// SetMany stores several bundles in one pipelined round trip, each with the
// store's default TTL.
func (s *Store) SetMany(ctx context.Context, bundles map[string]*bundle.Bundle) error {
	pipe := s.client.Pipeline()
	for cityID, b := range bundles {
		if b == nil {
			continue
		}
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshaling bundle for city %s: %w", cityID, err)
		}
		pipe.Set(ctx, key(cityID), data, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set many: %w", err)
	}
	return nil
}
