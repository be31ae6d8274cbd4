// Package freshness answers whether cached data at a given scope is still
// good enough to show without refetching. Staleness is evaluated lazily on
// read; there is no background expiry sweep.
package freshness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/models"
)

// DefaultTTL is how long a cache scope stays fresh unless a caller overrides
// it.
const DefaultTTL = 24 * time.Hour

// Scope key constructors. Keys are composite strings so distinct scopes never
// collide.

// ScheduleScope is the freshness key for a group's schedule window.
func ScheduleScope(groupID string) string {
	return fmt.Sprintf("schedules:%s", groupID)
}

// LineupScope is the freshness key for one schedule entry's lineups.
func LineupScope(scheduleID string) string {
	return fmt.Sprintf("lineups:%s", scheduleID)
}

// RegattaScope is the freshness key for a single regatta.
func RegattaScope(regattaID string) string {
	return fmt.Sprintf("regatta:%s", regattaID)
}

// GroupRegattaScope is the freshness key for a group's regatta list.
func GroupRegattaScope(groupID string) string {
	return fmt.Sprintf("regattas:%s", groupID)
}

// Tracker reads and stamps freshness records.
type Tracker struct {
	store      *localstore.Store
	now        func() time.Time
	defaultTTL time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithDefaultTTL overrides the TTL used when a caller does not pass one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		if ttl > 0 {
			t.defaultTTL = ttl
		}
	}
}

// New creates a Tracker over the given store.
func New(store *localstore.Store, opts ...Option) *Tracker {
	t := &Tracker{store: store, now: time.Now, defaultTTL: DefaultTTL}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Touch stamps the scope as freshly populated with the given TTL. A zero or
// negative TTL falls back to the tracker's default.
func (t *Tracker) Touch(ctx context.Context, key string, ttl time.Duration) error {
	return t.store.Tx(ctx, func(q *localstore.Queries) error {
		return t.TouchTx(ctx, q, key, ttl)
	})
}

// TouchTx stamps the scope inside an existing transaction. Cache population
// uses this so the data write and the freshness stamp commit atomically.
func (t *Tracker) TouchTx(ctx context.Context, q *localstore.Queries, key string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	now := t.now()
	return q.PutFreshness(ctx, models.FreshnessRecord{
		Key:         key,
		LastUpdated: now,
		ExpiresAt:   now.Add(ttl),
	})
}

// IsExpired reports whether the scope needs refetching. A missing record
// means expired.
func (t *Tracker) IsExpired(ctx context.Context, key string) (bool, error) {
	rec, err := t.store.Reader().GetFreshness(ctx, key)
	if errors.Is(err, localstore.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return t.now().After(rec.ExpiresAt), nil
}

// Record returns the raw freshness record for a scope, or localstore.ErrNotFound.
func (t *Tracker) Record(ctx context.Context, key string) (models.FreshnessRecord, error) {
	return t.store.Reader().GetFreshness(ctx, key)
}
