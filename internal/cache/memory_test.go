package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k1", payload{Name: "alice", Count: 3}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	hit, err := m.Get(ctx, "k1", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit")
	}
	if got.Name != "alice" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryMiss(t *testing.T) {
	m := NewMemory()

	var got payload
	hit, err := m.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Error("expected a miss")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k1", payload{Name: "bob"}, 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	now = now.Add(4 * time.Minute)
	var got payload
	if hit, _ := m.Get(ctx, "k1", &got); !hit {
		t.Error("entry expired early")
	}

	now = now.Add(2 * time.Minute)
	if hit, _ := m.Get(ctx, "k1", &got); hit {
		t.Error("entry outlived its TTL")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "logs:a", payload{}, 0)
	m.Set(ctx, "logs:b", payload{}, 0)
	m.Set(ctx, "trust:a", payload{}, 0)

	if err := m.Invalidate(ctx, "logs:"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	var got payload
	if hit, _ := m.Get(ctx, "logs:a", &got); hit {
		t.Error("prefixed entry survived invalidation")
	}
	if hit, _ := m.Get(ctx, "trust:a", &got); !hit {
		t.Error("unrelated entry was dropped")
	}

	// Empty prefix drops everything.
	if err := m.Invalidate(ctx, ""); err != nil {
		t.Fatalf("Invalidate all: %v", err)
	}
	if hit, _ := m.Get(ctx, "trust:a", &got); hit {
		t.Error("entry survived full invalidation")
	}
}

func TestGetOrFetchMemoizes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	calls := 0

	fetch := func(ctx context.Context) (interface{}, error) {
		calls++
		return payload{Name: "carol", Count: calls}, nil
	}

	var first payload
	if err := GetOrFetch(ctx, m, "k", time.Minute, &first, fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}

	var second payload
	if err := GetOrFetch(ctx, m, "k", time.Minute, &second, fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}

	if calls != 1 {
		t.Errorf("fetch ran %d times, want 1", calls)
	}
	if second.Count != 1 {
		t.Errorf("second read = %+v, want memoized first value", second)
	}
}

func TestGetOrFetchErrorNotMemoized(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	calls := 0

	failing := func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("backend down")
	}

	var dest payload
	if err := GetOrFetch(ctx, m, "k", time.Minute, &dest, failing); err == nil {
		t.Fatal("expected error")
	}
	if err := GetOrFetch(ctx, m, "k", time.Minute, &dest, failing); err == nil {
		t.Fatal("expected error on retry")
	}
	if calls != 2 {
		t.Errorf("fetch ran %d times, want 2 (failures are not cached)", calls)
	}
}
