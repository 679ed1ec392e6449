package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Current schema version
const SchemaVersion = "1"

const timeLayout = time.RFC3339Nano

// SQLite is a SQLite-backed transcript store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens or creates a transcript database at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}
	// One connection so ":memory:" databases are shared across calls.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}

	// Check/set schema version (use unlocked versions since we're in init)
	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}

	if version == "" {
		if err := s.migrateToV1(); err != nil {
			db.Close()
			return nil, err
		}
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	} else if version != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("store: unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// migrateToV1 creates the transcript tables.
func (s *SQLite) migrateToV1() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			entry TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS events (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			address TEXT NOT NULL,
			detail TEXT NOT NULL,
			ts TEXT NOT NULL,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);
	`)
	return err
}

// BeginSession creates a session header.
func (s *SQLite) BeginSession(id, entry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO sessions (id, entry, started_at) VALUES (?, ?, ?)",
		id, entry, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("store: begin session %s: %w", id, err)
	}
	return nil
}

// Append adds an event to a session, numbering it after the last one.
func (s *SQLite) Append(sessionID string, kind EventKind, address, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("store: unknown session %s", sessionID)
	}

	var seq int
	err = tx.QueryRow("SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE session_id = ?", sessionID).Scan(&seq)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO events (session_id, seq, kind, address, detail, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, seq, string(kind), address, detail, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// EndSession records the session outcome.
func (s *SQLite) EndSession(id, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE sessions SET ended_at = ?, outcome = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), outcome, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: unknown session %s", id)
	}
	return nil
}

// Session returns the session header, or nil if not found.
func (s *SQLite) Session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		sess           Session
		started, ended string
	)
	err := s.db.QueryRow(
		"SELECT id, entry, started_at, ended_at, outcome FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.Entry, &started, &ended, &sess.Outcome)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if sess.EndedAt, err = parseTime(ended); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Sessions returns session headers newest first. A limit of 0 returns all
// of them.
func (s *SQLite) Sessions(limit int) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT id, entry, started_at, ended_at, outcome FROM sessions ORDER BY rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess           Session
			started, ended string
		)
		if err := rows.Scan(&sess.ID, &sess.Entry, &started, &ended, &sess.Outcome); err != nil {
			return nil, err
		}
		if sess.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if sess.EndedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Events returns events oldest first. A limit of 0 returns all of them.
func (s *SQLite) Events(sessionID string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT seq, kind, address, detail, ts FROM events WHERE session_id = ? ORDER BY seq ASC"
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev       Event
			kind, ts string
		)
		if err := rows.Scan(&ev.Seq, &kind, &ev.Address, &ev.Detail, &ts); err != nil {
			return nil, err
		}
		ev.Kind = EventKind(kind)
		if ev.Ts, err = parseTime(ts); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
