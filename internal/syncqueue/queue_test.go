package syncqueue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coxswain-app/shoreline/internal/models"
	"github.com/coxswain-app/shoreline/internal/remote"
	"github.com/coxswain-app/shoreline/internal/syncqueue"
	"github.com/coxswain-app/shoreline/internal/test"
)

// fakeSyncer records every sync attempt and fails with whatever error is
// currently set.
type fakeSyncer struct {
	mu      sync.Mutex
	failErr error
	calls   []models.MutationQueueItem
}

func (f *fakeSyncer) Sync(_ context.Context, item models.MutationQueueItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, item)
	return f.failErr
}

func (f *fakeSyncer) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSyncer) syncedEntities() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.calls))
	for i, c := range f.calls {
		ids[i] = c.EntityID
	}
	return ids
}

func TestDrain_FIFOOrder(t *testing.T) {
	t.Parallel()

	th := test.Setup(t)
	syncer := &fakeSyncer{}
	q := syncqueue.New(th.Store, syncer, th.Monitor, syncqueue.WithClock(th.Clock.Now))

	for _, entity := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(th.Context, models.OperationCreate, models.EntityKindLineup, entity, map[string]string{"id": entity})
		require.NoError(t, err)
		th.Clock.Advance(time.Second)
	}

	result, err := q.Drain(th.Context)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Remaining)
	assert.Equal(t, []string{"a", "b", "c"}, syncer.syncedEntities(), "expected strict enqueue order")

	n, err := q.Len(th.Context)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnqueue_OfflineNeverTouchesNetwork(t *testing.T) {
	t.Parallel()

	th := test.Setup(t)
	syncer := &fakeSyncer{}
	q := syncqueue.New(th.Store, syncer, th.Monitor, syncqueue.WithClock(th.Clock.Now))

	item, err := q.Enqueue(th.Context, models.OperationUpdate, models.EntityKindSchedule, "p1", map[string]string{"name": "Afternoon Row"})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ClientRequestID, "expected an idempotency key to be assigned")
	assert.Zero(t, item.RetryCount)

	assert.Zero(t, syncer.callCount(), "expected no remote call while offline")

	items, err := q.Items(th.Context)
	require.NoError(t, err)
	require.Len(t, items, 1, "expected the mutation to be durably queued")
	assert.Equal(t, "p1", items[0].EntityID)
	assert.JSONEq(t, `{"name":"Afternoon Row"}`, string(items[0].Payload))
}

func TestStart_DrainsOnReconnect(t *testing.T) {
	t.Parallel()

	th := test.Setup(t)
	syncer := &fakeSyncer{}
	q := syncqueue.New(th.Store, syncer, th.Monitor, syncqueue.WithClock(th.Clock.Now))
	q.Start(th.Context)
	defer q.Close()

	_, err := q.Enqueue(th.Context, models.OperationCreate, models.EntityKindLineup, "l1", nil)
	require.NoError(t, err)
	require.Zero(t, syncer.callCount())

	th.Monitor.SetOnline(true)

	require.Eventually(t, func() bool {
		n, err := q.Len(th.Context)
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond, "expected the queue to drain after connectivity is restored")
	assert.Equal(t, 1, syncer.callCount())
}

func TestDrain_RejectionDropsWithoutRetry(t *testing.T) {
	t.Parallel()

	th := test.Setup(t)
	syncer := &fakeSyncer{failErr: &remote.APIError{StatusCode: 422, Status: "422 Unprocessable Entity"}}

	var (
		dropped models.MutationQueueItem
		reason  syncqueue.DropReason
	)
	q := syncqueue.New(th.Store, syncer, th.Monitor,
		syncqueue.WithClock(th.Clock.Now),
		syncqueue.WithDropHandler(func(item models.MutationQueueItem, r syncqueue.DropReason, _ error) {
			dropped = item
			reason = r
		}))

	_, err := q.Enqueue(th.Context, models.OperationCreate, models.EntityKindAssignment, "seat-1", nil)
	require.NoError(t, err)

	result, err := q.Drain(th.Context)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Remaining)

	assert.Equal(t, 1, syncer.callCount(), "expected a rejected payload never to be retried")
	assert.Equal(t, syncqueue.DropReasonRejected, reason)
	assert.Equal(t, "seat-1", dropped.EntityID)
}

func TestDrain_TransientFailureRetriesThenDrops(t *testing.T) {
	t.Parallel()

	th := test.Setup(t)
	syncer := &fakeSyncer{failErr: &remote.APIError{StatusCode: 503, Status: "503 Service Unavailable"}}

	var (
		dropped models.MutationQueueItem
		reason  syncqueue.DropReason
	)
	q := syncqueue.New(th.Store, syncer, th.Monitor,
		syncqueue.WithClock(th.Clock.Now),
		syncqueue.WithDropHandler(func(item models.MutationQueueItem, r syncqueue.DropReason, _ error) {
			dropped = item
			reason = r
		}))

	_, err := q.Enqueue(th.Context, models.OperationDelete, models.EntityKindLineup, "l1", nil)
	require.NoError(t, err)

	// Two failing passes leave the item queued with a bumped retry count.
	for pass := 1; pass < syncqueue.MaxRetries; pass++ {
		result, err := q.Drain(th.Context)
		require.NoError(t, err)
		assert.Zero(t, result.Failed, "pass %d should not drop yet", pass)
		assert.Equal(t, 1, result.Remaining)

		items, err := q.Items(th.Context)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, pass, items[0].RetryCount)
	}

	// The final failing pass drops the item.
	result, err := q.Drain(th.Context)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Remaining)

	assert.Equal(t, syncqueue.DropReasonRetriesExhausted, reason)
	assert.Equal(t, syncqueue.MaxRetries, dropped.RetryCount)
	assert.Equal(t, syncqueue.MaxRetries, syncer.callCount())
}

func TestDrain_NetworkFailureKeepsItem(t *testing.T) {
	t.Parallel()

	th := test.Setup(t)
	syncer := &fakeSyncer{failErr: &remote.NetworkError{Err: errors.New("connection refused")}}
	q := syncqueue.New(th.Store, syncer, th.Monitor, syncqueue.WithClock(th.Clock.Now))

	_, err := q.Enqueue(th.Context, models.OperationCreate, models.EntityKindLineup, "l1", nil)
	require.NoError(t, err)

	result, err := q.Drain(th.Context)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Remaining, "expected a network failure to leave the item queued")

	// Once the remote recovers, the next drain flushes it.
	syncer.setError(nil)
	result, err = q.Drain(th.Context)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Zero(t, result.Remaining)
}

func TestDrain_MixedOutcomes(t *testing.T) {
	t.Parallel()

	th := test.Setup(t)
	rejected := map[string]bool{"bad": true}
	syncer := &scriptedSyncer{rejected: rejected}
	q := syncqueue.New(th.Store, syncer, th.Monitor, syncqueue.WithClock(th.Clock.Now))

	for _, entity := range []string{"ok-1", "bad", "ok-2"} {
		_, err := q.Enqueue(th.Context, models.OperationCreate, models.EntityKindLineup, entity, nil)
		require.NoError(t, err)
		th.Clock.Advance(time.Second)
	}

	result, err := q.Drain(th.Context)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Remaining, "expected one item's failure not to block the rest")
}

// scriptedSyncer rejects specific entities and accepts everything else.
type scriptedSyncer struct {
	mu       sync.Mutex
	rejected map[string]bool
}

func (s *scriptedSyncer) Sync(_ context.Context, item models.MutationQueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejected[item.EntityID] {
		return &remote.APIError{StatusCode: 400, Status: "400 Bad Request"}
	}
	return nil
}
