// ABOUTME: SQLite-backed audit log implementation using modernc.org/sqlite
// ABOUTME: Persists authorization events across restarts with automatic schema creation

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteLog implements Log on a SQLite database. Entries are ordered by
// insertion (rowid), which preserves append order across restarts.
type SQLiteLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteLog opens (or creates) a SQLite audit log at the given path.
// Parent directories are created if needed.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	logger := slog.Default().With("component", "audit")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	// WAL mode for better concurrent append performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL,
			action TEXT,
			challenge_id TEXT,
			reason TEXT,
			ts TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	logger.Info("SQLite audit log initialized", "path", path)
	return &SQLiteLog{db: db, logger: logger}, nil
}

// Append inserts a new entry. Generates ID and Timestamp if not set.
func (l *SQLiteLog) Append(ctx context.Context, r Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_log (id, event, action, challenge_id, reason, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		r.ID,
		string(r.Event),
		r.Action,
		r.ChallengeID,
		r.Reason,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}

	l.logger.Debug("appended audit record",
		"id", r.ID,
		"event", r.Event,
		"challenge_id", r.ChallengeID,
	)
	return nil
}

// Records returns all entries in append order (rowid ascending).
func (l *SQLiteLog) Records(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, event, action, challenge_id, reason, ts
		FROM audit_log
		ORDER BY rowid ASC
	`
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		var event, tsStr string
		if err := rows.Scan(&r.ID, &event, &r.Action, &r.ChallengeID, &r.Reason, &tsStr); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		r.Event = Event(event)
		r.Timestamp, err = time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing audit timestamp: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Close closes the underlying database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
