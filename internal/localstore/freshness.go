package localstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coxswain-app/shoreline/internal/models"
)

// PutFreshness inserts or replaces the freshness record for a scope key.
func (q *Queries) PutFreshness(ctx context.Context, rec models.FreshnessRecord) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO freshness (key, last_updated, expires_at) VALUES (?, ?, ?)`,
		rec.Key, toMillis(rec.LastUpdated), toMillis(rec.ExpiresAt))
	if err != nil {
		return &Error{Op: "put freshness", Err: err}
	}
	q.markChanged(CollectionFreshness)
	return nil
}

// GetFreshness returns the freshness record for a scope key, or ErrNotFound.
func (q *Queries) GetFreshness(ctx context.Context, key string) (models.FreshnessRecord, error) {
	var (
		rec                  models.FreshnessRecord
		lastUpdated, expires int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT key, last_updated, expires_at FROM freshness WHERE key = ?`, key).
		Scan(&rec.Key, &lastUpdated, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, &Error{Op: "get freshness", Err: err}
	}
	rec.LastUpdated = fromMillis(lastUpdated)
	rec.ExpiresAt = fromMillis(expires)
	return rec, nil
}

// DeleteFreshness removes the freshness record for a scope key.
func (q *Queries) DeleteFreshness(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM freshness WHERE key = ?`, key)
	if err != nil {
		return &Error{Op: "delete freshness", Err: err}
	}
	q.markChanged(CollectionFreshness)
	return nil
}

// ListFreshness returns every freshness record, ordered by key.
func (q *Queries) ListFreshness(ctx context.Context) ([]models.FreshnessRecord, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT key, last_updated, expires_at FROM freshness ORDER BY key`)
	if err != nil {
		return nil, &Error{Op: "list freshness", Err: err}
	}
	defer func() {
		_ = rows.Close()
	}()

	var recs []models.FreshnessRecord
	for rows.Next() {
		var (
			rec                  models.FreshnessRecord
			lastUpdated, expires int64
		)
		if err := rows.Scan(&rec.Key, &lastUpdated, &expires); err != nil {
			return nil, &Error{Op: "scan freshness", Err: err}
		}
		rec.LastUpdated = fromMillis(lastUpdated)
		rec.ExpiresAt = fromMillis(expires)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate freshness", Err: err}
	}
	return recs, nil
}
