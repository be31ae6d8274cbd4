package localstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/models"
)

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "expected store to open")
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testSchedule(id, groupID, date string) models.CachedScheduleEntry {
	start := time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)
	return models.CachedScheduleEntry{
		ID:           id,
		OwnerGroupID: groupID,
		SeasonID:     "season-1",
		Name:         "Morning Row",
		Date:         date,
		StartTime:    start,
		EndTime:      start.Add(2 * time.Hour),
		Status:       models.ScheduleStatusPublished,
		CachedAt:     start,
		SyncStatus:   models.SyncStatusSynced,
	}
}

func TestTx_RollbackOnError(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.UpsertSchedules(ctx, []models.CachedScheduleEntry{
			testSchedule("p1", "team-1", "2024-06-10"),
		}); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err, "expected transaction to fail")
	require.ErrorIs(t, err, boom, "expected original error to be preserved")

	// Nothing from the failed transaction is visible.
	_, err = store.Reader().GetSchedule(ctx, "p1")
	require.ErrorIs(t, err, localstore.ErrNotFound, "expected no partial state after rollback")
}

func TestTx_MultiCollectionAtomicity(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	err := store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.UpsertSchedules(ctx, []models.CachedScheduleEntry{
			testSchedule("p1", "team-1", "2024-06-10"),
		}); err != nil {
			return err
		}
		return q.PutFreshness(ctx, models.FreshnessRecord{
			Key:         "schedules:team-1",
			LastUpdated: time.Now(),
			ExpiresAt:   time.Now().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	reader := store.Reader()
	_, err = reader.GetSchedule(ctx, "p1")
	require.NoError(t, err, "expected schedule to be committed")
	_, err = reader.GetFreshness(ctx, "schedules:team-1")
	require.NoError(t, err, "expected freshness to be committed")
}

func TestDeleteSchedulesInWindow(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	err := store.Tx(ctx, func(q *localstore.Queries) error {
		return q.UpsertSchedules(ctx, []models.CachedScheduleEntry{
			testSchedule("before", "team-1", "2024-06-09"),
			testSchedule("inside", "team-1", "2024-06-15"),
			testSchedule("after", "team-1", "2024-06-25"),
			testSchedule("other-group", "team-2", "2024-06-15"),
		})
	})
	require.NoError(t, err)

	err = store.Tx(ctx, func(q *localstore.Queries) error {
		return q.DeleteSchedulesInWindow(ctx, "team-1", "2024-06-10", "2024-06-24")
	})
	require.NoError(t, err)

	reader := store.Reader()
	_, err = reader.GetSchedule(ctx, "inside")
	require.ErrorIs(t, err, localstore.ErrNotFound, "expected in-window record to be deleted")
	_, err = reader.GetSchedule(ctx, "before")
	require.NoError(t, err, "expected record before window to survive")
	_, err = reader.GetSchedule(ctx, "after")
	require.NoError(t, err, "expected record after window to survive")
	_, err = reader.GetSchedule(ctx, "other-group")
	require.NoError(t, err, "expected other group's record to survive")
}

func TestDeleteRegatta_CascadesRaces(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	err := store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.UpsertRegatta(ctx, models.CachedRegattaEntry{
			ID:           "r1",
			OwnerGroupID: "team-1",
			Name:         "City Sprints",
			StartDate:    start,
			Source:       models.RegattaSourceRemoteImport,
			CachedAt:     start,
			SyncStatus:   models.SyncStatusSynced,
		}); err != nil {
			return err
		}
		return q.UpsertRaces(ctx, []models.CachedRegattaRaceEntry{
			{ID: "race-1", RegattaID: "r1", EventName: "Mens 8+", ScheduledTime: start, Status: models.RaceStatusScheduled},
			{ID: "race-2", RegattaID: "r1", EventName: "Womens 4x", ScheduledTime: start, Status: models.RaceStatusScheduled},
		})
	})
	require.NoError(t, err)

	err = store.Tx(ctx, func(q *localstore.Queries) error {
		return q.DeleteRegatta(ctx, "r1")
	})
	require.NoError(t, err)

	races, err := store.Reader().ListRacesByRegatta(ctx, "r1")
	require.NoError(t, err)
	require.Empty(t, races, "expected races to be deleted with their regatta")
}

func TestMutations_FIFOAndRetry(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	var firstID int64
	err := store.Tx(ctx, func(q *localstore.Queries) error {
		for i, entity := range []string{"a", "b", "c"} {
			id, err := q.AppendMutation(ctx, models.MutationQueueItem{
				Operation:       models.OperationCreate,
				EntityKind:      models.EntityKindLineup,
				EntityID:        entity,
				Payload:         []byte(`{}`),
				ClientRequestID: entity,
				EnqueuedAt:      base.Add(time.Duration(i) * time.Second),
			})
			if err != nil {
				return err
			}
			if i == 0 {
				firstID = id
			}
		}
		return nil
	})
	require.NoError(t, err)

	items, err := store.Reader().ListMutations(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "a", items[0].EntityID, "expected FIFO order")
	require.Equal(t, "b", items[1].EntityID)
	require.Equal(t, "c", items[2].EntityID)

	err = store.Tx(ctx, func(q *localstore.Queries) error {
		count, err := q.IncrementMutationRetry(ctx, firstID)
		if err != nil {
			return err
		}
		require.Equal(t, 1, count, "expected retry count to be bumped")
		return nil
	})
	require.NoError(t, err)

	err = store.Tx(ctx, func(q *localstore.Queries) error {
		return q.DeleteMutation(ctx, firstID)
	})
	require.NoError(t, err)

	n, err := store.Reader().CountMutations(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestSubscribe_NotifiesOnCommit(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	ch, unsubscribe := store.Subscribe(localstore.CollectionSchedules)
	defer unsubscribe()

	err := store.Tx(ctx, func(q *localstore.Queries) error {
		return q.UpsertSchedules(ctx, []models.CachedScheduleEntry{
			testSchedule("p1", "team-1", "2024-06-10"),
		})
	})
	require.NoError(t, err)

	select {
	case c := <-ch:
		require.Equal(t, localstore.CollectionSchedules, c)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification after commit")
	}

	// Writes to other collections are filtered out.
	err = store.Tx(ctx, func(q *localstore.Queries) error {
		return q.PutFreshness(ctx, models.FreshnessRecord{
			Key:         "schedules:team-1",
			LastUpdated: time.Now(),
			ExpiresAt:   time.Now().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	select {
	case c := <-ch:
		t.Fatalf("expected no notification for %s", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_NoNotificationOnRollback(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	ch, unsubscribe := store.Subscribe(localstore.CollectionSchedules)
	defer unsubscribe()

	err := store.Tx(ctx, func(q *localstore.Queries) error {
		if err := q.UpsertSchedules(ctx, []models.CachedScheduleEntry{
			testSchedule("p1", "team-1", "2024-06-10"),
		}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	select {
	case c := <-ch:
		t.Fatalf("expected no notification for rolled-back write, got %s", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLineups_SeatSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)
	entry := models.CachedLineupEntry{
		ID:              "l1",
		ScheduleEntryID: "p1",
		BlockID:         "block-1",
		BlockType:       models.BlockTypeWater,
		BlockPosition:   1,
		BoatID:          "boat-1",
		BoatName:        "Resolute",
		Seats: []models.Seat{
			{Position: 1, AthleteID: "a1", AthleteName: "Stroke", Side: models.SideStarboard},
			{Position: 2, AthleteID: "a2", AthleteName: "Seven", Side: models.SidePort},
		},
		CachedAt:   now,
		SyncStatus: models.SyncStatusSynced,
	}

	err := store.Tx(ctx, func(q *localstore.Queries) error {
		return q.UpsertLineups(ctx, []models.CachedLineupEntry{entry})
	})
	require.NoError(t, err)

	got, err := store.Reader().GetLineup(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, entry.Seats, got.Seats, "expected seat snapshot to round-trip")
	require.Equal(t, models.BlockTypeWater, got.BlockType)
}
