// Package cache keeps the local store a faithful, time-windowed mirror of
// remote data. Every population writes the data and its freshness stamp in
// one transaction, so readers never see one without the other.
package cache

import (
	"context"
	"time"

	"github.com/coxswain-app/shoreline/internal/freshness"
	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
	"github.com/coxswain-app/shoreline/internal/models"
)

const (
	// ScheduleWindowDays bounds scoped schedule replacement: caching a
	// schedule batch only replaces records dated within [today, today+window].
	ScheduleWindowDays = 14

	// regattaRetention is how long a finished regatta stays cached before
	// cleanup removes it.
	regattaRetention = 7 * 24 * time.Hour
)

// Manager populates, replaces, and evicts local store contents from remote
// snapshots.
type Manager struct {
	store *localstore.Store
	fresh *freshness.Tracker
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a Manager over the given store and freshness tracker.
func New(store *localstore.Store, fresh *freshness.Tracker, opts ...Option) *Manager {
	m := &Manager{store: store, fresh: fresh, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CallOption adjusts a single cache operation.
type CallOption func(*callOpts)

type callOpts struct {
	ttl time.Duration
}

// WithTTL overrides the default freshness TTL for this call.
func WithTTL(ttl time.Duration) CallOption {
	return func(o *callOpts) {
		o.ttl = ttl
	}
}

func applyCallOpts(opts []CallOption) callOpts {
	var o callOpts
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CacheSchedules replaces the group's schedule entries within the cache
// window with the incoming batch, marking them synced, and stamps the scope's
// freshness — all in one transaction. Records dated outside the window are
// left untouched; stale data beyond the window persists until its own
// refresh.
func (m *Manager) CacheSchedules(ctx context.Context, groupID string, records []models.CachedScheduleEntry, opts ...CallOption) error {
	o := applyCallOpts(opts)
	now := m.now()
	windowStart := models.DateOf(now)
	windowEnd := models.DateOf(now.AddDate(0, 0, ScheduleWindowDays))

	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.DeleteSchedulesInWindow(ctx, groupID, windowStart, windowEnd); err != nil {
			return err
		}
		entries := make([]models.CachedScheduleEntry, len(records))
		for i, r := range records {
			r.CachedAt = now
			r.SyncStatus = models.SyncStatusSynced
			entries[i] = r
		}
		if err := q.UpsertSchedules(ctx, entries); err != nil {
			return err
		}
		return m.fresh.TouchTx(ctx, q, freshness.ScheduleScope(groupID), o.ttl)
	})
	if err != nil {
		return err
	}

	logger.Debug(ctx, "Cached schedules",
		tag.Group(groupID),
		tag.Count(len(records)),
	)
	return nil
}

// CacheLineups fully replaces the lineups of one schedule entry and stamps
// the scope's freshness.
func (m *Manager) CacheLineups(ctx context.Context, scheduleID string, records []models.CachedLineupEntry, opts ...CallOption) error {
	o := applyCallOpts(opts)
	now := m.now()

	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.DeleteLineupsBySchedule(ctx, scheduleID); err != nil {
			return err
		}
		entries := make([]models.CachedLineupEntry, len(records))
		for i, r := range records {
			r.CachedAt = now
			r.SyncStatus = models.SyncStatusSynced
			entries[i] = r
		}
		if err := q.UpsertLineups(ctx, entries); err != nil {
			return err
		}
		return m.fresh.TouchTx(ctx, q, freshness.LineupScope(scheduleID), o.ttl)
	})
	if err != nil {
		return err
	}

	logger.Debug(ctx, "Cached lineups",
		tag.Schedule(scheduleID),
		tag.Count(len(records)),
	)
	return nil
}

// GetCachedSchedules returns the group's cached schedule entries along with
// whether the scope is stale.
func (m *Manager) GetCachedSchedules(ctx context.Context, groupID string) ([]models.CachedScheduleEntry, bool, error) {
	entries, err := m.store.Reader().ListSchedulesByGroup(ctx, groupID)
	if err != nil {
		return nil, true, err
	}
	stale, err := m.fresh.IsExpired(ctx, freshness.ScheduleScope(groupID))
	if err != nil {
		return nil, true, err
	}
	return entries, stale, nil
}

// GetCachedLineups returns the cached lineups of one schedule entry along
// with whether the scope is stale.
func (m *Manager) GetCachedLineups(ctx context.Context, scheduleID string) ([]models.CachedLineupEntry, bool, error) {
	entries, err := m.store.Reader().ListLineupsBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, true, err
	}
	stale, err := m.fresh.IsExpired(ctx, freshness.LineupScope(scheduleID))
	if err != nil {
		return nil, true, err
	}
	return entries, stale, nil
}
