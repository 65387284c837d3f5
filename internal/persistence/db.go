// Package persistence stores world snapshots and the event log in SQLite.
// Snapshots are gzip-compressed JSON blobs keyed by tick; a small meta
// table carries world identity across restarts.
package persistence

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when the database holds no saved world.
var ErrNoSnapshot = errors.New("no snapshot found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	tick    INTEGER PRIMARY KEY,
	seq     INTEGER NOT NULL,
	data    BLOB NOT NULL,
	created TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tick        INTEGER NOT NULL,
	category    TEXT NOT NULL,
	description TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);

CREATE TABLE IF NOT EXISTS world_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; serialize access through one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("database ready", "path", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores a compressed world snapshot, replacing any previous
// save at the same tick, and prunes to the newest few saves.
func (s *Store) SaveSnapshot(tick, seq uint64, raw []byte) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO snapshots (tick, seq, data) VALUES (?, ?, ?)`,
		tick, seq, buf.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	// Keep the five most recent saves.
	_, err = s.db.Exec(
		`DELETE FROM snapshots WHERE tick NOT IN (SELECT tick FROM snapshots ORDER BY tick DESC LIMIT 5)`,
	)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	slog.Debug("snapshot saved", "tick", tick, "bytes", buf.Len())
	return nil
}

// LoadLatestSnapshot returns the decompressed JSON of the newest snapshot.
func (s *Store) LoadLatestSnapshot() ([]byte, uint64, error) {
	var row struct {
		Tick uint64 `db:"tick"`
		Data []byte `db:"data"`
	}
	err := s.db.Get(&row, `SELECT tick, data FROM snapshots ORDER BY tick DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNoSnapshot
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load snapshot: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(row.Data))
	if err != nil {
		return nil, 0, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, 0, fmt.Errorf("decompress snapshot: %w", err)
	}
	return raw, row.Tick, nil
}

// AppendEvents stores a batch of events in one transaction.
func (s *Store) AppendEvents(tick uint64, events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	for _, ev := range events {
		if _, err := tx.Exec(
			`INSERT INTO events (tick, category, description) VALUES (?, ?, ?)`,
			tick, ev.Category, ev.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("append events: %w", err)
		}
	}
	return tx.Commit()
}

// EventRecord is one persisted event row.
type EventRecord struct {
	Tick        uint64 `db:"tick" json:"tick"`
	Category    string `db:"category" json:"category"`
	Description string `db:"description" json:"description"`
}

// EventsSince returns events at or after the given tick, oldest first.
func (s *Store) EventsSince(tick uint64, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []EventRecord
	err := s.db.Select(&out,
		`SELECT tick, category, description FROM events WHERE tick >= ? ORDER BY id ASC LIMIT ?`,
		tick, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return out, nil
}

// SetMeta stores a key/value pair.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// GetMeta returns the value for a key, or "" when unset.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM world_meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
