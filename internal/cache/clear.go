package cache

import (
	"context"

	"github.com/coxswain-app/shoreline/internal/freshness"
	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
)

// ClearGroupCache tears down all cached schedules and lineups for a group
// along with their freshness records. Used on sign-out or membership change.
func (m *Manager) ClearGroupCache(ctx context.Context, groupID string) error {
	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		schedules, err := q.ListSchedulesByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		for _, s := range schedules {
			if err := q.DeleteLineupsBySchedule(ctx, s.ID); err != nil {
				return err
			}
			if err := q.DeleteFreshness(ctx, freshness.LineupScope(s.ID)); err != nil {
				return err
			}
		}
		if err := q.DeleteSchedulesByGroup(ctx, groupID); err != nil {
			return err
		}
		return q.DeleteFreshness(ctx, freshness.ScheduleScope(groupID))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "Cleared group cache", tag.Group(groupID))
	return nil
}

// ClearRegattaCache tears down one cached regatta, its races, and its
// freshness record.
func (m *Manager) ClearRegattaCache(ctx context.Context, id string) error {
	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.DeleteRegatta(ctx, id); err != nil {
			return err
		}
		return q.DeleteFreshness(ctx, freshness.RegattaScope(id))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "Cleared regatta cache", tag.Regatta(id))
	return nil
}

// ClearGroupRegattaCache tears down every cached regatta of a group.
func (m *Manager) ClearGroupRegattaCache(ctx context.Context, groupID string) error {
	err := m.store.Tx(ctx, func(q *localstore.Queries) error {
		regattas, err := q.ListRegattasByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		for _, r := range regattas {
			if err := q.DeleteRegatta(ctx, r.ID); err != nil {
				return err
			}
			if err := q.DeleteFreshness(ctx, freshness.RegattaScope(r.ID)); err != nil {
				return err
			}
		}
		return q.DeleteFreshness(ctx, freshness.GroupRegattaScope(groupID))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "Cleared group regatta cache", tag.Group(groupID))
	return nil
}
