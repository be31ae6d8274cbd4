// Package syncqueue guarantees that a user's write survives a restart or a
// connectivity gap and eventually reaches the remote system, or is
// definitively abandoned.
package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coxswain-app/shoreline/internal/connectivity"
	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
	"github.com/coxswain-app/shoreline/internal/models"
	"github.com/coxswain-app/shoreline/internal/remote"
)

// MaxRetries is the number of transient failures an item survives before it
// is dropped.
const MaxRetries = 3

// DropReason says why a mutation was abandoned.
type DropReason string

const (
	// DropReasonRejected marks a client-class rejection from the remote
	// system; the item is never retried.
	DropReasonRejected DropReason = "rejected"
	// DropReasonRetriesExhausted marks an item that failed transiently
	// MaxRetries times.
	DropReasonRetriesExhausted DropReason = "retries_exhausted"
)

// DropHandler observes abandoned mutations. Drops are not surfaced to the
// caller that enqueued the mutation; this hook exists so a UI layer can
// choose to.
type DropHandler func(item models.MutationQueueItem, reason DropReason, err error)

// DrainResult reports the outcome of one drain pass.
type DrainResult struct {
	Processed int
	Failed    int
	Remaining int
}

// Queue is a durable FIFO of pending write operations.
type Queue struct {
	store   *localstore.Store
	syncer  remote.Syncer
	monitor connectivity.Monitor
	onDrop  DropHandler
	now     func() time.Time

	// drainMu serializes drains: items are processed strictly sequentially so
	// there is never more than one in-flight write for the same entity.
	drainMu sync.Mutex

	drainCtx    context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithDropHandler registers a hook observing abandoned mutations.
func WithDropHandler(fn DropHandler) Option {
	return func(q *Queue) {
		q.onDrop = fn
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// New creates a Queue over the given store, remote syncer, and connectivity
// monitor.
func New(store *localstore.Store, syncer remote.Syncer, monitor connectivity.Monitor, opts ...Option) *Queue {
	q := &Queue{
		store:   store,
		syncer:  syncer,
		monitor: monitor,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start subscribes the queue to connectivity-restored signals. Each
// offline-to-online edge triggers an opportunistic drain using ctx.
func (q *Queue) Start(ctx context.Context) {
	q.drainCtx = ctx
	q.unsubscribe = q.monitor.OnBecameOnline(func() {
		q.asyncDrain()
	})
}

// Close unsubscribes from connectivity signals and waits for any in-flight
// drain to finish.
func (q *Queue) Close() {
	if q.unsubscribe != nil {
		q.unsubscribe()
	}
	q.wg.Wait()
}

// Enqueue appends a mutation with retry count zero. If the monitor reports
// online, a drain is triggered in the background; enqueue itself never blocks
// on the network. The payload must be JSON-serializable.
func (q *Queue) Enqueue(ctx context.Context, op models.Operation, kind models.EntityKind, entityID string, payload any) (models.MutationQueueItem, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return models.MutationQueueItem{}, fmt.Errorf("syncqueue: marshal payload: %w", err)
	}

	item := models.MutationQueueItem{
		Operation:       op,
		EntityKind:      kind,
		EntityID:        entityID,
		Payload:         raw,
		ClientRequestID: uuid.NewString(),
		EnqueuedAt:      q.now(),
	}

	err = q.store.Tx(ctx, func(lq *localstore.Queries) error {
		id, err := lq.AppendMutation(ctx, item)
		if err != nil {
			return err
		}
		item.ID = id
		return nil
	})
	if err != nil {
		return models.MutationQueueItem{}, err
	}

	logger.Debug(ctx, "Enqueued mutation",
		tag.Mutation(item.ID),
		tag.Op(string(op)),
		tag.Kind(string(kind)),
		tag.Entity(entityID),
	)

	if q.monitor.IsOnline() {
		q.asyncDrain()
	}
	return item, nil
}

// Len returns the number of pending mutations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.Reader().CountMutations(ctx)
}

// Items returns the pending mutations in FIFO order.
func (q *Queue) Items(ctx context.Context) ([]models.MutationQueueItem, error) {
	return q.store.Reader().ListMutations(ctx)
}

func (q *Queue) asyncDrain() {
	ctx := q.drainCtx
	if ctx == nil {
		ctx = context.Background()
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if _, err := q.Drain(ctx); err != nil {
			logger.Error(ctx, "Background drain failed", tag.Error(err))
		}
	}()
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(p)
	}
}
