package cache

import (
	"context"

	"github.com/coxswain-app/shoreline/internal/freshness"
	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
	"github.com/coxswain-app/shoreline/internal/models"
)

// RegattaWithRaces bundles a regatta and its race list.
type RegattaWithRaces struct {
	Regatta models.CachedRegattaEntry
	Races   []models.CachedRegattaRaceEntry
	// IsStale is set on reads: true when no freshness record exists for the
	// regatta or it has expired.
	IsStale bool
}

// CacheRegatta replaces one regatta and its races and stamps the regatta's
// freshness scope, all in one transaction.
func (m *Manager) CacheRegatta(ctx context.Context, regatta models.CachedRegattaEntry, races []models.CachedRegattaRaceEntry, opts ...CallOption) error {
	o := applyCallOpts(opts)
	now := m.now()

	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.DeleteRacesByRegatta(ctx, regatta.ID); err != nil {
			return err
		}
		regatta.CachedAt = now
		regatta.SyncStatus = models.SyncStatusSynced
		if err := q.UpsertRegatta(ctx, regatta); err != nil {
			return err
		}
		if err := q.UpsertRaces(ctx, races); err != nil {
			return err
		}
		return m.fresh.TouchTx(ctx, q, freshness.RegattaScope(regatta.ID), o.ttl)
	})
	if err != nil {
		return err
	}

	logger.Debug(ctx, "Cached regatta",
		tag.Regatta(regatta.ID),
		tag.Count(len(races)),
	)
	return nil
}

// CacheGroupRegattas replaces a group's entire regatta cache with the
// incoming set and stamps both the group scope and each regatta's scope.
func (m *Manager) CacheGroupRegattas(ctx context.Context, groupID string, regattas []RegattaWithRaces, opts ...CallOption) error {
	o := applyCallOpts(opts)
	now := m.now()

	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		existing, err := q.ListRegattasByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if err := q.DeleteRegatta(ctx, r.ID); err != nil {
				return err
			}
			if err := q.DeleteFreshness(ctx, freshness.RegattaScope(r.ID)); err != nil {
				return err
			}
		}
		for _, rr := range regattas {
			regatta := rr.Regatta
			regatta.CachedAt = now
			regatta.SyncStatus = models.SyncStatusSynced
			if err := q.UpsertRegatta(ctx, regatta); err != nil {
				return err
			}
			if err := q.UpsertRaces(ctx, rr.Races); err != nil {
				return err
			}
			if err := m.fresh.TouchTx(ctx, q, freshness.RegattaScope(regatta.ID), o.ttl); err != nil {
				return err
			}
		}
		return m.fresh.TouchTx(ctx, q, freshness.GroupRegattaScope(groupID), o.ttl)
	})
	if err != nil {
		return err
	}

	logger.Debug(ctx, "Cached group regattas",
		tag.Group(groupID),
		tag.Count(len(regattas)),
	)
	return nil
}

// GetCachedRegatta returns one cached regatta with its races and staleness.
func (m *Manager) GetCachedRegatta(ctx context.Context, id string) (RegattaWithRaces, error) {
	reader := m.store.Reader()
	regatta, err := reader.GetRegatta(ctx, id)
	if err != nil {
		return RegattaWithRaces{}, err
	}
	races, err := reader.ListRacesByRegatta(ctx, id)
	if err != nil {
		return RegattaWithRaces{}, err
	}
	stale, err := m.fresh.IsExpired(ctx, freshness.RegattaScope(id))
	if err != nil {
		return RegattaWithRaces{}, err
	}
	return RegattaWithRaces{Regatta: regatta, Races: races, IsStale: stale}, nil
}

// GetCachedRegattas returns a group's cached regattas and whether the group
// scope is stale.
func (m *Manager) GetCachedRegattas(ctx context.Context, groupID string) ([]models.CachedRegattaEntry, bool, error) {
	regattas, err := m.store.Reader().ListRegattasByGroup(ctx, groupID)
	if err != nil {
		return nil, true, err
	}
	stale, err := m.fresh.IsExpired(ctx, freshness.GroupRegattaScope(groupID))
	if err != nil {
		return nil, true, err
	}
	return regattas, stale, nil
}

// CleanupOldRegattaCache removes regattas whose effective end date is more
// than the retention period in the past, cascading to their races and
// freshness records. Returns the number of regattas removed. Re-running with
// nothing eligible removes zero.
func (m *Manager) CleanupOldRegattaCache(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-regattaRetention)

	var removed int
	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		expired, err := q.ListRegattasEndedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, r := range expired {
			if err := q.DeleteRegatta(ctx, r.ID); err != nil {
				return err
			}
			if err := q.DeleteFreshness(ctx, freshness.RegattaScope(r.ID)); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		logger.Info(ctx, "Cleaned up old regatta cache", tag.Count(removed))
	}
	return removed, nil
}
