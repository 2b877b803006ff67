// Package store keeps rep and session history in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Session is one finished (or interrupted) run of reps.
type Session struct {
	ID        string
	Started   time.Time
	Ended     time.Time
	Outcome   string
	Correct   int
	Incorrect int
}

// Rep is one scored attempt.
type Rep struct {
	Session   string
	Timestamp time.Time
	Event     string
	Fault     string
	Correct   int
	Incorrect int
}

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
}

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		started_ms  BIGINT NOT NULL,
		ended_ms    BIGINT NOT NULL,
		outcome     TEXT NOT NULL,
		correct     INTEGER NOT NULL,
		incorrect   INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS reps (
		rep_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		ts_ms       BIGINT NOT NULL,
		event       TEXT NOT NULL,
		fault       TEXT NOT NULL,
		correct     INTEGER NOT NULL,
		incorrect   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS reps_session ON reps (session_id);
`

// Open opens (creating if needed) the database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db}, nil
}

// RecordRep appends a scored rep.
func (db *DB) RecordRep(r Rep) error {
	_, err := db.Exec(
		`INSERT INTO reps (session_id, ts_ms, event, fault, correct, incorrect) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Session, r.Timestamp.UnixMilli(), r.Event, r.Fault, r.Correct, r.Incorrect,
	)
	if err != nil {
		return fmt.Errorf("record rep: %w", err)
	}
	return nil
}

// RecordSession stores a session, replacing any earlier row with the same ID.
func (db *DB) RecordSession(s Session) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO sessions (id, started_ms, ended_ms, outcome, correct, incorrect) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Started.UnixMilli(), s.Ended.UnixMilli(), s.Outcome, s.Correct, s.Incorrect,
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, most recently ended first.
func (db *DB) RecentSessions(limit int) ([]Session, error) {
	rows, err := db.Query(
		`SELECT id, started_ms, ended_ms, outcome, correct, incorrect FROM sessions ORDER BY ended_ms DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var started, ended int64
		if err := rows.Scan(&s.ID, &started, &ended, &s.Outcome, &s.Correct, &s.Incorrect); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Started = time.UnixMilli(started).UTC()
		s.Ended = time.UnixMilli(ended).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Reps returns the reps of one session in the order they were scored.
func (db *DB) Reps(session string) ([]Rep, error) {
	rows, err := db.Query(
		`SELECT session_id, ts_ms, event, fault, correct, incorrect FROM reps WHERE session_id = ? ORDER BY rep_id`,
		session,
	)
	if err != nil {
		return nil, fmt.Errorf("query reps: %w", err)
	}
	defer rows.Close()

	var out []Rep
	for rows.Next() {
		var r Rep
		var ts int64
		if err := rows.Scan(&r.Session, &ts, &r.Event, &r.Fault, &r.Correct, &r.Incorrect); err != nil {
			return nil, fmt.Errorf("scan rep: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
