package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coxswain-app/shoreline/internal/models"
)

const scheduleColumns = `id, owner_group_id, season_id, name, date, start_time, end_time, status, notes, cached_at, sync_status`

// UpsertSchedules inserts or replaces schedule entries in bulk.
func (q *Queries) UpsertSchedules(ctx context.Context, entries []models.CachedScheduleEntry) error {
	for _, e := range entries {
		_, err := q.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO schedules (`+scheduleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.OwnerGroupID, e.SeasonID, e.Name, e.Date,
			toMillis(e.StartTime), toMillis(e.EndTime),
			string(e.Status), e.Notes, toMillis(e.CachedAt), string(e.SyncStatus),
		)
		if err != nil {
			return &Error{Op: "upsert schedule", Err: err}
		}
	}
	if len(entries) > 0 {
		q.markChanged(CollectionSchedules)
	}
	return nil
}

// GetSchedule returns a schedule entry by id.
func (q *Queries) GetSchedule(ctx context.Context, id string) (models.CachedScheduleEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

// ListSchedulesByGroup returns all schedule entries for a group ordered by
// date then start time.
func (q *Queries) ListSchedulesByGroup(ctx context.Context, groupID string) ([]models.CachedScheduleEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE owner_group_id = ? ORDER BY date, start_time`, groupID)
	if err != nil {
		return nil, &Error{Op: "list schedules", Err: err}
	}
	return collectSchedules(rows)
}

// ListSchedulesInWindow returns schedule entries for a group whose date lies
// within [fromDate, toDate] inclusive.
func (q *Queries) ListSchedulesInWindow(ctx context.Context, groupID, fromDate, toDate string) ([]models.CachedScheduleEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE owner_group_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, start_time`, groupID, fromDate, toDate)
	if err != nil {
		return nil, &Error{Op: "list schedules in window", Err: err}
	}
	return collectSchedules(rows)
}

// DeleteSchedulesInWindow removes schedule entries for a group whose date
// lies within [fromDate, toDate] inclusive. Entries outside the window are
// never touched.
func (q *Queries) DeleteSchedulesInWindow(ctx context.Context, groupID, fromDate, toDate string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM schedules WHERE owner_group_id = ? AND date >= ? AND date <= ?`,
		groupID, fromDate, toDate)
	if err != nil {
		return &Error{Op: "delete schedules in window", Err: err}
	}
	q.markChanged(CollectionSchedules)
	return nil
}

// DeleteSchedulesByGroup removes every schedule entry for a group.
func (q *Queries) DeleteSchedulesByGroup(ctx context.Context, groupID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM schedules WHERE owner_group_id = ?`, groupID)
	if err != nil {
		return &Error{Op: "delete schedules by group", Err: err}
	}
	q.markChanged(CollectionSchedules)
	return nil
}

// DeleteSchedule removes a single schedule entry.
func (q *Queries) DeleteSchedule(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return &Error{Op: "delete schedule", Err: err}
	}
	q.markChanged(CollectionSchedules)
	return nil
}

// SetScheduleSyncStatus updates the sync status of a schedule entry, used by
// optimistic local edits to mark records pending.
func (q *Queries) SetScheduleSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE schedules SET sync_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return &Error{Op: "set schedule sync status", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	q.markChanged(CollectionSchedules)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (models.CachedScheduleEntry, error) {
	var (
		e                    models.CachedScheduleEntry
		start, end, cachedAt int64
		status, syncStatus   string
	)
	err := row.Scan(&e.ID, &e.OwnerGroupID, &e.SeasonID, &e.Name, &e.Date,
		&start, &end, &status, &e.Notes, &cachedAt, &syncStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, &Error{Op: "scan schedule", Err: err}
	}
	e.StartTime = fromMillis(start)
	e.EndTime = fromMillis(end)
	e.CachedAt = fromMillis(cachedAt)
	e.Status = models.ScheduleStatus(status)
	e.SyncStatus = models.SyncStatus(syncStatus)
	return e, nil
}

func collectSchedules(rows *sql.Rows) ([]models.CachedScheduleEntry, error) {
	defer func() {
		_ = rows.Close()
	}()

	var entries []models.CachedScheduleEntry
	for rows.Next() {
		e, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate schedules", Err: err}
	}
	return entries, nil
}
