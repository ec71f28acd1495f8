// Package cache holds in-process caches that sit in front of durable state.
// They are an optimization only: every cached fact can be recomputed from
// the database.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the read-through contract the services depend on.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

// Cleaner is implemented by caches that can drop expired entries in bulk.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically evicts expired entries from registered caches.
type Janitor struct {
	caches map[string]Cleaner
}

func NewJanitor() *Janitor {
	return &Janitor{caches: make(map[string]Cleaner)}
}

func (j *Janitor) Register(name string, c Cleaner) {
	j.caches[name] = c
}

// Sweep cleans every registered cache once and returns the total removed.
func (j *Janitor) Sweep(ctx context.Context) int {
	total := 0
	for name, c := range j.caches {
		n := c.CleanExpired()
		if n > 0 {
			slog.DebugContext(ctx, "Evicted expired cache entries", "cache", name, "count", n)
		}
		total += n
	}
	return total
}

// Run sweeps on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}
