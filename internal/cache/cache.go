// Package cache is the process-wide memo for backend payloads, keyed by
// query shape. Invalidation is wholesale only, triggered by an explicit
// force-refresh; there is no fine-grained or partial invalidation.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the memo contract injected into callers. Values are stored as
// JSON so the in-process and Redis implementations behave identically.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, prefix string) error
}

// GetOrFetch resolves key from the store, falling back to fetch on a
// miss and memoizing the result. Cache failures degrade to a direct
// fetch; they never fail the caller.
func GetOrFetch(ctx context.Context, s Store, key string, ttl time.Duration, dest interface{}, fetch func(context.Context) (interface{}, error)) error {
	if hit, err := s.Get(ctx, key, dest); err == nil && hit {
		return nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return err
	}

	// Best effort: a failed Set only costs the memoization.
	_ = s.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
