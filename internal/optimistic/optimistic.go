// Package optimistic orchestrates "apply locally, sync remotely, roll back
// on failure" for a single user action, so edits feel instantaneous while
// staying consistent with the remote system.
package optimistic

import (
	"context"

	"github.com/coxswain-app/shoreline/internal/connectivity"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
	"github.com/coxswain-app/shoreline/internal/models"
	"github.com/coxswain-app/shoreline/internal/remote"
	"github.com/coxswain-app/shoreline/internal/syncqueue"
)

// Mutation describes the queued form of a user edit.
type Mutation struct {
	Operation  models.Operation
	EntityKind models.EntityKind
	EntityID   string
	Payload    any
}

// OfflineMutation is the queue-first pattern: the local update applies
// immediately and the remote write always goes through the mutation queue.
type OfflineMutation struct {
	// Apply performs the optimistic local update.
	Apply func(ctx context.Context) error
	// Rollback compensates Apply. Best-effort: a rollback failure is logged
	// and never masks the original error.
	Rollback func(ctx context.Context) error
	Mutation Mutation
}

// Fallback is the direct-call pattern: the remote call runs immediately when
// online and only falls back to the queue on a connectivity failure.
type Fallback struct {
	Apply    func(ctx context.Context) error
	Rollback func(ctx context.Context) error
	// Call performs the remote write directly, bypassing the queue.
	Call     func(ctx context.Context) error
	Mutation Mutation
}

// Outcome reports what happened to the remote side of an edit this tick.
type Outcome struct {
	// SyncedNow is true when the remote system confirmed the write before
	// returning.
	SyncedNow bool
	// Queued is true when the write is waiting in the mutation queue.
	Queued bool
}

// Executor ties optimistic local writes to remote delivery.
type Executor struct {
	queue   *syncqueue.Queue
	monitor connectivity.Monitor
}

// New creates an Executor over the given queue and connectivity monitor.
func New(queue *syncqueue.Queue, monitor connectivity.Monitor) *Executor {
	return &Executor{queue: queue, monitor: monitor}
}

// CreateOfflineMutation applies the optimistic update, enqueues the mutation,
// and, when online, attempts an immediate drain, reporting whether the write
// synced this tick. Any failure in the optimistic step triggers rollback and
// returns the original error.
func (e *Executor) CreateOfflineMutation(ctx context.Context, m OfflineMutation) (Outcome, error) {
	if err := m.Apply(ctx); err != nil {
		e.rollback(ctx, m.Rollback, err)
		return Outcome{}, err
	}

	item, err := e.queue.Enqueue(ctx, m.Mutation.Operation, m.Mutation.EntityKind, m.Mutation.EntityID, m.Mutation.Payload)
	if err != nil {
		e.rollback(ctx, m.Rollback, err)
		return Outcome{}, err
	}

	if !e.monitor.IsOnline() {
		return Outcome{Queued: true}, nil
	}

	if _, err := e.queue.Drain(ctx); err != nil {
		// The write is safely queued; drain failure only means it did not
		// sync this tick.
		logger.Warn(ctx, "Immediate drain failed", tag.Mutation(item.ID), tag.Error(err))
		return Outcome{Queued: true}, nil
	}

	pending, err := e.stillQueued(ctx, item.ID)
	if err != nil {
		return Outcome{Queued: true}, nil
	}
	if pending {
		return Outcome{Queued: true}, nil
	}
	return Outcome{SyncedNow: true}, nil
}

// ExecuteWithOfflineFallback applies the optimistic update and attempts the
// remote call directly when online. A network-class failure (no response) is
// absorbed by enqueuing the mutation instead; an application or validation
// error rolls the local update back and is returned without queuing.
func (e *Executor) ExecuteWithOfflineFallback(ctx context.Context, f Fallback) (Outcome, error) {
	if err := f.Apply(ctx); err != nil {
		e.rollback(ctx, f.Rollback, err)
		return Outcome{}, err
	}

	if !e.monitor.IsOnline() {
		if _, err := e.enqueue(ctx, f.Mutation); err != nil {
			e.rollback(ctx, f.Rollback, err)
			return Outcome{}, err
		}
		return Outcome{Queued: true}, nil
	}

	err := f.Call(ctx)
	if err == nil {
		return Outcome{SyncedNow: true}, nil
	}

	if remote.IsNetwork(err) {
		logger.Info(ctx, "Remote call failed without a response; queuing mutation",
			tag.Op(string(f.Mutation.Operation)),
			tag.Entity(f.Mutation.EntityID),
			tag.Error(err),
		)
		if _, qerr := e.enqueue(ctx, f.Mutation); qerr != nil {
			e.rollback(ctx, f.Rollback, qerr)
			return Outcome{}, qerr
		}
		return Outcome{Queued: true}, nil
	}

	// Business-rule rejection: queuing is reserved for connectivity
	// failures, so undo the local edit and surface the error.
	e.rollback(ctx, f.Rollback, err)
	return Outcome{}, err
}

func (e *Executor) enqueue(ctx context.Context, m Mutation) (models.MutationQueueItem, error) {
	return e.queue.Enqueue(ctx, m.Operation, m.EntityKind, m.EntityID, m.Payload)
}

func (e *Executor) stillQueued(ctx context.Context, id int64) (bool, error) {
	items, err := e.queue.Items(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (e *Executor) rollback(ctx context.Context, fn func(ctx context.Context) error, cause error) {
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		logger.Error(ctx, "Rollback failed",
			tag.Error(err),
			"cause", cause,
		)
	}
}
