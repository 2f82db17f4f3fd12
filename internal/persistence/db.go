// Package persistence provides SQLite-based storage for the diplomatic world state.
// Each realm is one JSON document; symmetric pair data, proposals, conflicts and the
// event log get their own tables.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/realm"
)

// SchemaVersion is the realm document version written by this build.
const SchemaVersion = 1

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return setup(conn)
}

// OpenMemory opens a private in-memory database, used by tests.
func OpenMemory() (*DB, error) {
	conn, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)
	return setup(conn)
}

func setup(conn *sqlx.DB) (*DB, error) {
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrations are applied in order; the index plus one is the version recorded.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS realms (
		id INTEGER PRIMARY KEY,
		version INTEGER NOT NULL,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pairs (
		pair TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conflicts (
		id TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		month INTEGER NOT NULL,
		kind TEXT NOT NULL,
		actor INTEGER NOT NULL,
		target INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_month ON events(month);
	CREATE INDEX IF NOT EXISTS idx_events_actor ON events(actor);
	`,
}

func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return err
	}

	var current int
	if err := db.conn.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_versions"); err != nil {
		return err
	}
	for i := current; i < len(migrations); i++ {
		tx, err := db.conn.Beginx()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_versions (version) VALUES (?)", i+1); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Info("applied migration", "version", i+1)
	}
	return nil
}

// SchemaVersions returns the applied migration versions, ascending.
func (db *DB) SchemaVersions() ([]int, error) {
	var out []int
	err := db.conn.Select(&out, "SELECT version FROM schema_versions ORDER BY version")
	return out, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key yields sql.ErrNoRows.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

func (db *DB) metaInt(key string) (int64, bool, error) {
	v, err := db.GetMeta(key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("malformed world meta", "key", key, "value", v)
		return 0, false, nil
	}
	return n, true, nil
}

// SavedSeed returns the seed of the stored world, if there is one.
func (db *DB) SavedSeed() (int64, bool, error) {
	return db.metaInt("seed")
}

// SaveEvents appends events to the log. Events already stored are ignored.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := saveEvents(tx, events); err != nil {
		return err
	}
	return tx.Commit()
}

func saveEvents(tx *sqlx.Tx, events []engine.Event) error {
	for _, e := range events {
		_, err := tx.NamedExec(`INSERT OR IGNORE INTO events
			(id, month, kind, actor, target, description, category)
			VALUES (:id, :month, :kind, :actor, :target, :description, :category)`, e)
		if err != nil {
			return err
		}
	}
	return nil
}

// RecentEvents returns the most recent events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT id, month, kind, actor, target, description, category
		 FROM events ORDER BY month DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return events, err
}

// EventsFor returns events a realm took part in, newest first.
func (db *DB) EventsFor(id realm.ID, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT id, month, kind, actor, target, description, category
		 FROM events WHERE actor = ? OR target = ? ORDER BY month DESC, rowid DESC LIMIT ?`,
		int64(id), int64(id), limit,
	)
	return events, err
}
