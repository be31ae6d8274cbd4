package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/coxswain-app/shoreline/internal/models"
)

const lineupColumns = `id, schedule_entry_id, block_id, block_type, block_position, boat_id, boat_name, seats, cached_at, sync_status`

// UpsertLineups inserts or replaces lineup entries in bulk. Seats are stored
// as a JSON snapshot owned by the entry.
func (q *Queries) UpsertLineups(ctx context.Context, entries []models.CachedLineupEntry) error {
	for _, e := range entries {
		seats := e.Seats
		if seats == nil {
			seats = []models.Seat{}
		}
		seatsJSON, err := json.Marshal(seats)
		if err != nil {
			return &Error{Op: "marshal seats", Err: err}
		}
		_, err = q.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO lineups (`+lineupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.ScheduleEntryID, e.BlockID, string(e.BlockType), e.BlockPosition,
			e.BoatID, e.BoatName, string(seatsJSON), toMillis(e.CachedAt), string(e.SyncStatus),
		)
		if err != nil {
			return &Error{Op: "upsert lineup", Err: err}
		}
	}
	if len(entries) > 0 {
		q.markChanged(CollectionLineups)
	}
	return nil
}

// GetLineup returns a lineup entry by id.
func (q *Queries) GetLineup(ctx context.Context, id string) (models.CachedLineupEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+lineupColumns+` FROM lineups WHERE id = ?`, id)
	return scanLineup(row)
}

// ListLineupsBySchedule returns all lineups for a schedule entry ordered by
// block position.
func (q *Queries) ListLineupsBySchedule(ctx context.Context, scheduleID string) ([]models.CachedLineupEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+lineupColumns+` FROM lineups WHERE schedule_entry_id = ? ORDER BY block_position`, scheduleID)
	if err != nil {
		return nil, &Error{Op: "list lineups", Err: err}
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []models.CachedLineupEntry
	for rows.Next() {
		e, err := scanLineup(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate lineups", Err: err}
	}
	return entries, nil
}

// DeleteLineupsBySchedule removes every lineup for a schedule entry.
func (q *Queries) DeleteLineupsBySchedule(ctx context.Context, scheduleID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM lineups WHERE schedule_entry_id = ?`, scheduleID)
	if err != nil {
		return &Error{Op: "delete lineups by schedule", Err: err}
	}
	q.markChanged(CollectionLineups)
	return nil
}

// DeleteLineup removes a single lineup entry.
func (q *Queries) DeleteLineup(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM lineups WHERE id = ?`, id)
	if err != nil {
		return &Error{Op: "delete lineup", Err: err}
	}
	q.markChanged(CollectionLineups)
	return nil
}

func scanLineup(row rowScanner) (models.CachedLineupEntry, error) {
	var (
		e                     models.CachedLineupEntry
		blockType, syncStatus string
		seatsJSON             string
		cachedAt              int64
	)
	err := row.Scan(&e.ID, &e.ScheduleEntryID, &e.BlockID, &blockType, &e.BlockPosition,
		&e.BoatID, &e.BoatName, &seatsJSON, &cachedAt, &syncStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, &Error{Op: "scan lineup", Err: err}
	}
	if err := json.Unmarshal([]byte(seatsJSON), &e.Seats); err != nil {
		return e, &Error{Op: "unmarshal seats", Err: err}
	}
	e.BlockType = models.BlockType(blockType)
	e.SyncStatus = models.SyncStatus(syncStatus)
	e.CachedAt = fromMillis(cachedAt)
	return e, nil
}
