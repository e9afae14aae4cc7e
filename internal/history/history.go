// Package history keeps an append-only log of project states for rollback.
//
// Every mutating command appends a snapshot of the serialized ProjectState
// as its commit pass leaves it, so 'vibe undo' (and a human with sqlite3)
// can restore the state any earlier command produced. Snapshots are never
// rewritten or deleted.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const dbName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	state_json TEXT NOT NULL,
	taken_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
`

// Snapshot is one historical project state.
type Snapshot struct {
	ID      string
	Command string
	State   []byte
	TakenAt time.Time
}

// Log is the append-only state history.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database under stateDir.
func Open(stateDir string) (*Log, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", filepath.Join(stateDir, dbName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append records a state snapshot taken before command ran.
// Returns the snapshot ID.
func (l *Log) Append(command string, stateJSON []byte) (string, error) {
	id := uuid.NewString()
	_, err := l.db.Exec(
		`INSERT INTO snapshots (id, command, state_json, taken_at) VALUES (?, ?, ?, ?)`,
		id, command, string(stateJSON), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("append snapshot: %w", err)
	}
	return id, nil
}

// Latest returns the most recent n snapshots, newest first.
func (l *Log) Latest(n int) ([]Snapshot, error) {
	rows, err := l.db.Query(
		`SELECT id, command, state_json, taken_at FROM snapshots ORDER BY taken_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var stateJSON string
		if err := rows.Scan(&s.ID, &s.Command, &stateJSON, &s.TakenAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.State = []byte(stateJSON)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns a snapshot by ID.
func (l *Log) Get(id string) (*Snapshot, error) {
	var s Snapshot
	var stateJSON string
	err := l.db.QueryRow(
		`SELECT id, command, state_json, taken_at FROM snapshots WHERE id = ?`, id).
		Scan(&s.ID, &s.Command, &stateJSON, &s.TakenAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	s.State = []byte(stateJSON)
	return &s, nil
}

// Count returns the number of recorded snapshots.
func (l *Log) Count() (int, error) {
	var n int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
