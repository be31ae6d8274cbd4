// Package localstore provides the durable, indexed, transactional on-device
// store backing the sync engine. All multi-collection writes go through Tx so
// no reader ever observes a partially applied write.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by point lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// Error wraps a storage failure. A failed transaction leaves prior state
// untouched; the wrapped error describes what went wrong.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("localstore: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Collection identifies one of the store's record sets, used for change
// notification.
type Collection string

const (
	CollectionSchedules    Collection = "schedules"
	CollectionLineups      Collection = "lineups"
	CollectionRegattas     Collection = "regattas"
	CollectionRegattaRaces Collection = "regatta_races"
	CollectionMutations    Collection = "mutations"
	CollectionFreshness    Collection = "freshness"
)

// Store is a SQLite-backed local store.
type Store struct {
	db       *sql.DB
	notifier *notifier
}

// Open opens (creating if necessary) the store at the given path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, &Error{Op: "open", Err: errors.New("path is required")}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, &Error{Op: "open", Err: err}
		}
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "open", Err: err}
	}

	// SQLite allows a single writer; limiting the pool avoids SQLITE_BUSY
	// churn under concurrent transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "migrate", Err: err}
	}

	return &Store{db: db, notifier: newNotifier()}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.notifier.close()
	return s.db.Close()
}

// Tx executes fn inside a single transaction. All writes made through the
// passed Queries become visible atomically on commit; any error rolls the
// whole transaction back.
func (s *Store) Tx(ctx context.Context, fn func(q *Queries) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "begin", Err: err}
	}

	changed := map[Collection]struct{}{}
	q := &Queries{
		db: dbTx,
		onChange: func(c Collection) {
			changed[c] = struct{}{}
		},
	}

	if err := fn(q); err != nil {
		_ = dbTx.Rollback()
		var serr *Error
		if errors.As(err, &serr) || errors.Is(err, ErrNotFound) {
			return err
		}
		return &Error{Op: "tx", Err: err}
	}

	if err := dbTx.Commit(); err != nil {
		return &Error{Op: "commit", Err: err}
	}

	for c := range changed {
		s.notifier.notify(c)
	}
	return nil
}

// Reader returns a Queries view for read-only access outside a transaction.
func (s *Store) Reader() *Queries {
	return &Queries{db: s.db, onChange: s.notifier.notify}
}

// Subscribe registers interest in changes to the given collections and
// returns a channel that receives the changed collection after each committed
// write, plus an unsubscribe function. The channel is never closed while
// subscribed; unsubscribe releases it.
func (s *Store) Subscribe(collections ...Collection) (<-chan Collection, func()) {
	return s.notifier.subscribe(collections...)
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries exposes the typed collection operations. Obtain one from Store.Tx
// for transactional writes or Store.Reader for reads.
type Queries struct {
	db       dbtx
	onChange func(Collection)
}

func (q *Queries) markChanged(c Collection) {
	if q.onChange != nil {
		q.onChange(c)
	}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

const schema = `
CREATE TABLE IF NOT EXISTS schedules (
	id             TEXT PRIMARY KEY,
	owner_group_id TEXT NOT NULL,
	season_id      TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	date           TEXT NOT NULL,
	start_time     INTEGER NOT NULL,
	end_time       INTEGER NOT NULL,
	status         TEXT NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	cached_at      INTEGER NOT NULL,
	sync_status    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_group_date ON schedules(owner_group_id, date);

CREATE TABLE IF NOT EXISTS lineups (
	id                TEXT PRIMARY KEY,
	schedule_entry_id TEXT NOT NULL,
	block_id          TEXT NOT NULL,
	block_type        TEXT NOT NULL,
	block_position    INTEGER NOT NULL,
	boat_id           TEXT NOT NULL DEFAULT '',
	boat_name         TEXT NOT NULL DEFAULT '',
	seats             TEXT NOT NULL DEFAULT '[]',
	cached_at         INTEGER NOT NULL,
	sync_status       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lineups_schedule ON lineups(schedule_entry_id);

CREATE TABLE IF NOT EXISTS regattas (
	id             TEXT PRIMARY KEY,
	owner_group_id TEXT NOT NULL,
	name           TEXT NOT NULL,
	location       TEXT NOT NULL DEFAULT '',
	venue          TEXT NOT NULL DEFAULT '',
	timezone       TEXT NOT NULL DEFAULT '',
	start_date     INTEGER NOT NULL,
	end_date       INTEGER,
	source         TEXT NOT NULL,
	cached_at      INTEGER NOT NULL,
	sync_status    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_regattas_group ON regattas(owner_group_id);

CREATE TABLE IF NOT EXISTS regatta_races (
	id             TEXT PRIMARY KEY,
	regatta_id     TEXT NOT NULL,
	event_name     TEXT NOT NULL,
	scheduled_time INTEGER NOT NULL,
	status         TEXT NOT NULL,
	heat           TEXT NOT NULL DEFAULT '',
	lane           INTEGER NOT NULL DEFAULT 0,
	placement      INTEGER NOT NULL DEFAULT 0,
	lineup         TEXT,
	notifications  TEXT
);
CREATE INDEX IF NOT EXISTS idx_regatta_races_regatta ON regatta_races(regatta_id);

CREATE TABLE IF NOT EXISTS mutations (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	operation         TEXT NOT NULL,
	entity_kind       TEXT NOT NULL,
	entity_id         TEXT NOT NULL,
	payload           BLOB,
	client_request_id TEXT NOT NULL,
	enqueued_at       INTEGER NOT NULL,
	retry_count       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_mutations_enqueued ON mutations(enqueued_at, id);

CREATE TABLE IF NOT EXISTS freshness (
	key          TEXT PRIMARY KEY,
	last_updated INTEGER NOT NULL,
	expires_at   INTEGER NOT NULL
);
`
