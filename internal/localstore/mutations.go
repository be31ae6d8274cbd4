package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coxswain-app/shoreline/internal/models"
)

const mutationColumns = `id, operation, entity_kind, entity_id, payload, client_request_id, enqueued_at, retry_count`

// AppendMutation appends a mutation queue item and returns its assigned id.
// Ids increase with insertion order, so ordering by (enqueued_at, id) yields
// strict FIFO even for items enqueued within the same millisecond.
func (q *Queries) AppendMutation(ctx context.Context, item models.MutationQueueItem) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO mutations (operation, entity_kind, entity_id, payload, client_request_id, enqueued_at, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(item.Operation), string(item.EntityKind), item.EntityID,
		[]byte(item.Payload), item.ClientRequestID, toMillis(item.EnqueuedAt), item.RetryCount,
	)
	if err != nil {
		return 0, &Error{Op: "append mutation", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &Error{Op: "append mutation", Err: err}
	}
	q.markChanged(CollectionMutations)
	return id, nil
}

// ListMutations returns all pending mutations in FIFO order.
func (q *Queries) ListMutations(ctx context.Context) ([]models.MutationQueueItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+mutationColumns+` FROM mutations ORDER BY enqueued_at, id`)
	if err != nil {
		return nil, &Error{Op: "list mutations", Err: err}
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []models.MutationQueueItem
	for rows.Next() {
		item, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate mutations", Err: err}
	}
	return items, nil
}

// CountMutations returns the number of pending mutations.
func (q *Queries) CountMutations(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&n); err != nil {
		return 0, &Error{Op: "count mutations", Err: err}
	}
	return n, nil
}

// DeleteMutation removes a mutation on a terminal outcome.
func (q *Queries) DeleteMutation(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM mutations WHERE id = ?`, id)
	if err != nil {
		return &Error{Op: "delete mutation", Err: err}
	}
	q.markChanged(CollectionMutations)
	return nil
}

// IncrementMutationRetry bumps the retry count of a mutation and returns the
// new count.
func (q *Queries) IncrementMutationRetry(ctx context.Context, id int64) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE mutations SET retry_count = retry_count + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, &Error{Op: "increment mutation retry", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("mutation %d: %w", id, ErrNotFound)
	}

	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT retry_count FROM mutations WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, &Error{Op: "increment mutation retry", Err: err}
	}
	q.markChanged(CollectionMutations)
	return count, nil
}

func scanMutation(row rowScanner) (models.MutationQueueItem, error) {
	var (
		item       models.MutationQueueItem
		op, kind   string
		payload    []byte
		enqueuedAt int64
	)
	err := row.Scan(&item.ID, &op, &kind, &item.EntityID, &payload,
		&item.ClientRequestID, &enqueuedAt, &item.RetryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return item, ErrNotFound
	}
	if err != nil {
		return item, &Error{Op: "scan mutation", Err: err}
	}

	item.Operation, err = models.ParseOperation(op)
	if err != nil {
		return item, &Error{Op: "scan mutation", Err: err}
	}
	item.EntityKind, err = models.ParseEntityKind(kind)
	if err != nil {
		return item, &Error{Op: "scan mutation", Err: err}
	}
	item.Payload = payload
	item.EnqueuedAt = fromMillis(enqueuedAt)
	return item, nil
}
