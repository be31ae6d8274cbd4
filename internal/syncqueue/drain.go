package syncqueue

import (
	"context"

	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
	"github.com/coxswain-app/shoreline/internal/models"
	"github.com/coxswain-app/shoreline/internal/remote"
)

// Drain processes all pending mutations strictly sequentially in enqueue
// order. Per item: remote success removes it; a client-class rejection drops
// it without retry; a transient or network failure bumps its retry count,
// dropping it once MaxRetries is reached. Items that still have retries left
// stay queued for the next drain.
//
// Concurrent Drain calls serialize; the in-flight item of a running drain
// always completes before anything else happens.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	var result DrainResult

	items, err := q.store.Reader().ListMutations(ctx)
	if err != nil {
		return result, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			break
		}
		q.processItem(ctx, item, &result)
	}

	remaining, err := q.store.Reader().CountMutations(ctx)
	if err != nil {
		return result, err
	}
	result.Remaining = remaining

	if result.Processed > 0 || result.Failed > 0 {
		logger.Info(ctx, "Drained mutation queue",
			"processed", result.Processed,
			"failed", result.Failed,
			"remaining", result.Remaining,
		)
	}
	return result, nil
}

func (q *Queue) processItem(ctx context.Context, item models.MutationQueueItem, result *DrainResult) {
	err := q.syncer.Sync(ctx, item)
	switch {
	case err == nil:
		if derr := q.remove(ctx, item.ID); derr != nil {
			logger.Error(ctx, "Failed to remove synced mutation",
				tag.Mutation(item.ID),
				tag.Error(derr),
			)
			return
		}
		result.Processed++

	case remote.IsRejected(err):
		// The remote system refused the payload outright. Retrying bad data
		// cannot succeed, so the item is dropped. The drop handler is the
		// only observer.
		if derr := q.remove(ctx, item.ID); derr != nil {
			logger.Error(ctx, "Failed to remove rejected mutation",
				tag.Mutation(item.ID),
				tag.Error(derr),
			)
			return
		}
		result.Failed++
		logger.Warn(ctx, "Dropped rejected mutation",
			tag.Mutation(item.ID),
			tag.Op(string(item.Operation)),
			tag.Kind(string(item.EntityKind)),
			tag.Entity(item.EntityID),
			tag.Error(err),
		)
		q.drop(item, DropReasonRejected, err)

	case remote.IsRetryable(err):
		q.handleRetryable(ctx, item, result, err)

	default:
		// Unexpected error shape; treat as retryable rather than silently
		// losing the write.
		q.handleRetryable(ctx, item, result, err)
	}
}

func (q *Queue) handleRetryable(ctx context.Context, item models.MutationQueueItem, result *DrainResult, cause error) {
	var newCount int
	err := q.store.Tx(ctx, func(lq *localstore.Queries) error {
		var err error
		newCount, err = lq.IncrementMutationRetry(ctx, item.ID)
		return err
	})
	if err != nil {
		logger.Error(ctx, "Failed to bump mutation retry count",
			tag.Mutation(item.ID),
			tag.Error(err),
		)
		return
	}

	if newCount < MaxRetries {
		logger.Debug(ctx, "Mutation will be retried",
			tag.Mutation(item.ID),
			tag.Attempt(newCount),
			tag.Error(cause),
		)
		return
	}

	if derr := q.remove(ctx, item.ID); derr != nil {
		logger.Error(ctx, "Failed to remove exhausted mutation",
			tag.Mutation(item.ID),
			tag.Error(derr),
		)
		return
	}
	result.Failed++
	logger.Warn(ctx, "Dropped mutation after retries exhausted",
		tag.Mutation(item.ID),
		tag.Op(string(item.Operation)),
		tag.Kind(string(item.EntityKind)),
		tag.Entity(item.EntityID),
		tag.Attempt(newCount),
		tag.Error(cause),
	)
	item.RetryCount = newCount
	q.drop(item, DropReasonRetriesExhausted, cause)
}

func (q *Queue) remove(ctx context.Context, id int64) error {
	return q.store.Tx(ctx, func(lq *localstore.Queries) error {
		return lq.DeleteMutation(ctx, id)
	})
}

func (q *Queue) drop(item models.MutationQueueItem, reason DropReason, err error) {
	if q.onDrop != nil {
		q.onDrop(item, reason, err)
	}
}
