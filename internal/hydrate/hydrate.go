// Package hydrate implements read-through cache population: serve fresh
// local data when the scope is still good, otherwise fetch the remote
// snapshot and cache it. When the remote system is unreachable, stale local
// data is served rather than failing the read.
package hydrate

import (
	"context"
	"time"

	"github.com/coxswain-app/shoreline/internal/backoff"
	"github.com/coxswain-app/shoreline/internal/cache"
	"github.com/coxswain-app/shoreline/internal/freshness"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
	"github.com/coxswain-app/shoreline/internal/models"
	"github.com/coxswain-app/shoreline/internal/remote"
)

// Hydrator fetches remote snapshots on demand and hands them to the cache
// manager.
type Hydrator struct {
	api     remote.SnapshotAPI
	manager *cache.Manager
	fresh   *freshness.Tracker
	policy  backoff.RetryPolicy
}

// Option configures a Hydrator.
type Option func(*Hydrator)

// WithRetryPolicy overrides the retry policy used for snapshot fetches.
func WithRetryPolicy(policy backoff.RetryPolicy) Option {
	return func(h *Hydrator) {
		h.policy = policy
	}
}

// New creates a Hydrator.
func New(api remote.SnapshotAPI, manager *cache.Manager, fresh *freshness.Tracker, opts ...Option) *Hydrator {
	h := &Hydrator{
		api:     api,
		manager: manager,
		fresh:   fresh,
		policy: &backoff.ExponentialBackoffPolicy{
			InitialInterval: 500 * time.Millisecond,
			BackoffFactor:   2.0,
			MaxInterval:     5 * time.Second,
			MaxRetries:      2,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Schedules returns the group's schedules, refetching from the remote system
// when the scope is stale. The second return value is true when the data
// served is stale (remote unreachable).
func (h *Hydrator) Schedules(ctx context.Context, groupID string) ([]models.CachedScheduleEntry, bool, error) {
	expired, err := h.fresh.IsExpired(ctx, freshness.ScheduleScope(groupID))
	if err != nil {
		return nil, true, err
	}
	if !expired {
		entries, _, err := h.manager.GetCachedSchedules(ctx, groupID)
		return entries, false, err
	}

	var records []models.CachedScheduleEntry
	fetchErr := backoff.Retry(ctx, func(ctx context.Context) error {
		var err error
		records, err = h.api.ListSchedules(ctx, groupID)
		return err
	}, h.policy, remote.IsTransient)

	if fetchErr != nil {
		if remote.IsNetwork(fetchErr) || remote.IsTransient(fetchErr) {
			// Offline: serve what we have, flagged stale.
			logger.Warn(ctx, "Schedule refresh failed; serving stale cache",
				tag.Group(groupID),
				tag.Error(fetchErr),
			)
			entries, _, err := h.manager.GetCachedSchedules(ctx, groupID)
			return entries, true, err
		}
		return nil, true, fetchErr
	}

	if err := h.manager.CacheSchedules(ctx, groupID, records); err != nil {
		return nil, true, err
	}
	entries, _, err := h.manager.GetCachedSchedules(ctx, groupID)
	return entries, false, err
}

// Lineups returns a schedule entry's lineups with the same read-through
// semantics as Schedules.
func (h *Hydrator) Lineups(ctx context.Context, scheduleID string) ([]models.CachedLineupEntry, bool, error) {
	expired, err := h.fresh.IsExpired(ctx, freshness.LineupScope(scheduleID))
	if err != nil {
		return nil, true, err
	}
	if !expired {
		entries, _, err := h.manager.GetCachedLineups(ctx, scheduleID)
		return entries, false, err
	}

	var records []models.CachedLineupEntry
	fetchErr := backoff.Retry(ctx, func(ctx context.Context) error {
		var err error
		records, err = h.api.ListLineups(ctx, scheduleID)
		return err
	}, h.policy, remote.IsTransient)

	if fetchErr != nil {
		if remote.IsNetwork(fetchErr) || remote.IsTransient(fetchErr) {
			logger.Warn(ctx, "Lineup refresh failed; serving stale cache",
				tag.Schedule(scheduleID),
				tag.Error(fetchErr),
			)
			entries, _, err := h.manager.GetCachedLineups(ctx, scheduleID)
			return entries, true, err
		}
		return nil, true, fetchErr
	}

	if err := h.manager.CacheLineups(ctx, scheduleID, records); err != nil {
		return nil, true, err
	}
	entries, _, err := h.manager.GetCachedLineups(ctx, scheduleID)
	return entries, false, err
}

// Regatta returns one regatta with its races, refetching when stale.
func (h *Hydrator) Regatta(ctx context.Context, id string) (cache.RegattaWithRaces, error) {
	expired, err := h.fresh.IsExpired(ctx, freshness.RegattaScope(id))
	if err != nil {
		return cache.RegattaWithRaces{}, err
	}
	if !expired {
		return h.manager.GetCachedRegatta(ctx, id)
	}

	var (
		regatta models.CachedRegattaEntry
		races   []models.CachedRegattaRaceEntry
	)
	fetchErr := backoff.Retry(ctx, func(ctx context.Context) error {
		var err error
		regatta, races, err = h.api.GetRegatta(ctx, id)
		return err
	}, h.policy, remote.IsTransient)

	if fetchErr != nil {
		if remote.IsNetwork(fetchErr) || remote.IsTransient(fetchErr) {
			logger.Warn(ctx, "Regatta refresh failed; serving stale cache",
				tag.Regatta(id),
				tag.Error(fetchErr),
			)
			return h.manager.GetCachedRegatta(ctx, id)
		}
		return cache.RegattaWithRaces{}, fetchErr
	}

	if err := h.manager.CacheRegatta(ctx, regatta, races); err != nil {
		return cache.RegattaWithRaces{}, err
	}
	return h.manager.GetCachedRegatta(ctx, id)
}
