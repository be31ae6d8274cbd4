package localstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coxswain-app/shoreline/internal/models"
)

const regattaColumns = `id, owner_group_id, name, location, venue, timezone, start_date, end_date, source, cached_at, sync_status`
const raceColumns = `id, regatta_id, event_name, scheduled_time, status, heat, lane, placement, lineup, notifications`

// UpsertRegatta inserts or replaces a regatta.
func (q *Queries) UpsertRegatta(ctx context.Context, r models.CachedRegattaEntry) error {
	var endDate any
	if r.EndDate != nil {
		endDate = toMillis(*r.EndDate)
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO regattas (`+regattaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerGroupID, r.Name, r.Location, r.Venue, r.Timezone,
		toMillis(r.StartDate), endDate, string(r.Source), toMillis(r.CachedAt), string(r.SyncStatus),
	)
	if err != nil {
		return &Error{Op: "upsert regatta", Err: err}
	}
	q.markChanged(CollectionRegattas)
	return nil
}

// GetRegatta returns a regatta by id.
func (q *Queries) GetRegatta(ctx context.Context, id string) (models.CachedRegattaEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+regattaColumns+` FROM regattas WHERE id = ?`, id)
	return scanRegatta(row)
}

// ListRegattasByGroup returns all regattas for a group ordered by start date.
func (q *Queries) ListRegattasByGroup(ctx context.Context, groupID string) ([]models.CachedRegattaEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+regattaColumns+` FROM regattas WHERE owner_group_id = ? ORDER BY start_date`, groupID)
	if err != nil {
		return nil, &Error{Op: "list regattas", Err: err}
	}
	return collectRegattas(rows)
}

// ListRegattasEndedBefore returns regattas whose effective end date (end
// date, or start date when unset) is before the cutoff.
func (q *Queries) ListRegattasEndedBefore(ctx context.Context, cutoff time.Time) ([]models.CachedRegattaEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+regattaColumns+` FROM regattas WHERE COALESCE(end_date, start_date) < ?`,
		toMillis(cutoff))
	if err != nil {
		return nil, &Error{Op: "list expired regattas", Err: err}
	}
	return collectRegattas(rows)
}

// DeleteRegatta removes a regatta and, in the same transaction, all of its
// races. A race never outlives its parent regatta.
func (q *Queries) DeleteRegatta(ctx context.Context, id string) error {
	if err := q.DeleteRacesByRegatta(ctx, id); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `DELETE FROM regattas WHERE id = ?`, id)
	if err != nil {
		return &Error{Op: "delete regatta", Err: err}
	}
	q.markChanged(CollectionRegattas)
	return nil
}

// DeleteRegattasByGroup removes every regatta for a group along with their races.
func (q *Queries) DeleteRegattasByGroup(ctx context.Context, groupID string) error {
	regattas, err := q.ListRegattasByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, r := range regattas {
		if err := q.DeleteRegatta(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpsertRaces inserts or replaces races in bulk.
func (q *Queries) UpsertRaces(ctx context.Context, races []models.CachedRegattaRaceEntry) error {
	for _, r := range races {
		var lineup, notifications any
		if r.Lineup != nil {
			lineup = string(r.Lineup)
		}
		if r.Notifications != nil {
			notifications = string(r.Notifications)
		}
		_, err := q.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO regatta_races (`+raceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.RegattaID, r.EventName, toMillis(r.ScheduledTime), string(r.Status),
			r.Heat, r.Lane, r.Placement, lineup, notifications,
		)
		if err != nil {
			return &Error{Op: "upsert race", Err: err}
		}
	}
	if len(races) > 0 {
		q.markChanged(CollectionRegattaRaces)
	}
	return nil
}

// ListRacesByRegatta returns all races for a regatta ordered by scheduled time.
func (q *Queries) ListRacesByRegatta(ctx context.Context, regattaID string) ([]models.CachedRegattaRaceEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+raceColumns+` FROM regatta_races WHERE regatta_id = ? ORDER BY scheduled_time`, regattaID)
	if err != nil {
		return nil, &Error{Op: "list races", Err: err}
	}
	defer func() {
		_ = rows.Close()
	}()

	var races []models.CachedRegattaRaceEntry
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, err
		}
		races = append(races, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate races", Err: err}
	}
	return races, nil
}

// DeleteRacesByRegatta removes every race belonging to a regatta.
func (q *Queries) DeleteRacesByRegatta(ctx context.Context, regattaID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM regatta_races WHERE regatta_id = ?`, regattaID)
	if err != nil {
		return &Error{Op: "delete races by regatta", Err: err}
	}
	q.markChanged(CollectionRegattaRaces)
	return nil
}

func scanRegatta(row rowScanner) (models.CachedRegattaEntry, error) {
	var (
		r                   models.CachedRegattaEntry
		startDate, cachedAt int64
		endDate             sql.NullInt64
		source, syncStatus  string
	)
	err := row.Scan(&r.ID, &r.OwnerGroupID, &r.Name, &r.Location, &r.Venue, &r.Timezone,
		&startDate, &endDate, &source, &cachedAt, &syncStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, &Error{Op: "scan regatta", Err: err}
	}
	r.StartDate = fromMillis(startDate)
	if endDate.Valid {
		t := fromMillis(endDate.Int64)
		r.EndDate = &t
	}
	r.CachedAt = fromMillis(cachedAt)
	r.Source = models.RegattaSource(source)
	r.SyncStatus = models.SyncStatus(syncStatus)
	return r, nil
}

func scanRace(row rowScanner) (models.CachedRegattaRaceEntry, error) {
	var (
		r                     models.CachedRegattaRaceEntry
		scheduled             int64
		status                string
		lineup, notifications sql.NullString
	)
	err := row.Scan(&r.ID, &r.RegattaID, &r.EventName, &scheduled, &status,
		&r.Heat, &r.Lane, &r.Placement, &lineup, &notifications)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, &Error{Op: "scan race", Err: err}
	}
	r.ScheduledTime = fromMillis(scheduled)
	r.Status = models.RaceStatus(status)
	if lineup.Valid {
		r.Lineup = []byte(lineup.String)
	}
	if notifications.Valid {
		r.Notifications = []byte(notifications.String)
	}
	return r, nil
}

func collectRegattas(rows *sql.Rows) ([]models.CachedRegattaEntry, error) {
	defer func() {
		_ = rows.Close()
	}()

	var regattas []models.CachedRegattaEntry
	for rows.Next() {
		r, err := scanRegatta(rows)
		if err != nil {
			return nil, err
		}
		regattas = append(regattas, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "iterate regattas", Err: err}
	}
	return regattas, nil
}
