package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/angsh-d/clinops-intel-sub000/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS investigations (
	query_id    TEXT PRIMARY KEY,
	question    TEXT NOT NULL,
	site_id     TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	answer      TEXT NOT NULL DEFAULT '',
	confidence  REAL NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	phases      INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_investigations_started ON investigations(started_at);
`

// Store keeps a local log of investigations in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path, creating parent
// directories as needed. Pass ":memory:" for an in-memory database (used by
// tests).
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts one investigation record keyed by query id.
func (s *Store) Save(rec Record) error {
	finished := ""
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO investigations (query_id, question, site_id, status, answer, confidence, error, phases, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_id) DO UPDATE SET
			status = excluded.status,
			answer = excluded.answer,
			confidence = excluded.confidence,
			error = excluded.error,
			phases = excluded.phases,
			finished_at = excluded.finished_at`,
		rec.QueryID, rec.Question, rec.SiteID, rec.Status, rec.Answer, rec.Confidence,
		rec.Error, rec.Phases, rec.StartedAt.UTC().Format(time.RFC3339), finished,
	)
	return err
}

// Get returns the record for queryID, or ErrNotFound.
func (s *Store) Get(queryID string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRow(`
		SELECT query_id, question, site_id, status, answer, confidence, error, phases, started_at, finished_at
		FROM investigations WHERE query_id = ?`, queryID,
	))
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT query_id, question, site_id, status, answer, confidence, error, phases, started_at, finished_at
		FROM investigations ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var startedAt, finishedAt string
	if err := row.Scan(&rec.QueryID, &rec.Question, &rec.SiteID, &rec.Status, &rec.Answer,
		&rec.Confidence, &rec.Error, &rec.Phases, &startedAt, &finishedAt); err != nil {
		return Record{}, err
	}

	t, err := utils.ParseRFC3339(startedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing started_at: %w", err)
	}
	rec.StartedAt = t

	if finishedAt != "" {
		t, err := utils.ParseRFC3339(finishedAt)
		if err != nil {
			return Record{}, fmt.Errorf("parsing finished_at: %w", err)
		}
		rec.FinishedAt = t
	}
	return rec, nil
}
