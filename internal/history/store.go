package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tunefetch/internal/queue"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one recorded run of an item.
type Entry struct {
	RequestID    string
	ItemID       string
	Kind         queue.SourceKind
	Source       string
	Status       queue.Status
	Lossless     bool
	ErrorMessage string
	FinalPath    string
	Results      map[string]any
	Steps        []StepRecord
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
}

// StepRecord is the persisted outcome of one step.
type StepRecord struct {
	Name       string
	Status     queue.StepStatus
	Summary    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the run time of the entry.
func (e Entry) Elapsed() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores the snapshot of a finished item. Recording the same run
// twice replaces the earlier row.
func (s *Store) Record(ctx context.Context, snap queue.Snapshot) error {
	ctx = ensureContext(ctx)
	results, err := json.Marshal(snap.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM run_steps WHERE request_id = ?`, snap.RequestID); err != nil {
			return fmt.Errorf("clear steps: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO runs (
                request_id, item_id, kind, source, status, lossless, error_message,
                final_path, results_json, created_at, started_at, finished_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.RequestID,
			snap.ID,
			string(snap.Kind),
			snap.Source,
			string(snap.Status),
			snap.Lossless,
			nullableString(snap.ErrorMessage),
			nullableString(snap.Files[queue.FileFinal]),
			string(results),
			formatTime(snap.CreatedAt),
			nullableTime(snap.StartedAt),
			nullableTime(snap.FinishedAt),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for pos, step := range snap.Steps {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_steps (request_id, position, name, status, summary, started_at, finished_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				snap.RequestID,
				pos,
				step.Name,
				string(step.Status),
				nullableString(step.Summary),
				nullableTime(step.StartedAt),
				nullableTime(step.FinishedAt),
			); err != nil {
				return fmt.Errorf("insert step %s: %w", step.Name, err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `request_id, item_id, kind, source, status, lossless, error_message,
    final_path, results_json, created_at, started_at, finished_at`

// Recent returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY COALESCE(finished_at, created_at) DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryEntries(ensureContext(ctx), query, args...)
}

// ForItem returns every run of the item, newest first.
func (s *Store) ForItem(ctx context.Context, itemID string) ([]Entry, error) {
	return s.queryEntries(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE item_id = ? ORDER BY COALESCE(finished_at, created_at) DESC, rowid DESC`,
		strings.TrimSpace(itemID),
	)
}

// Clear deletes every run and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return removed, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	for i := range entries {
		steps, err := s.steps(ctx, entries[i].RequestID)
		if err != nil {
			return nil, err
		}
		entries[i].Steps = steps
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry                     Entry
		kind, status, resultsJSON string
		createdAt                 string
		errorMessage, finalPath   sql.NullString
		startedAt, finishedAt     sql.NullString
	)
	if err := rows.Scan(
		&entry.RequestID,
		&entry.ItemID,
		&kind,
		&entry.Source,
		&status,
		&entry.Lossless,
		&errorMessage,
		&finalPath,
		&resultsJSON,
		&createdAt,
		&startedAt,
		&finishedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan run: %w", err)
	}
	entry.Kind = queue.SourceKind(kind)
	entry.Status = queue.Status(status)
	entry.ErrorMessage = errorMessage.String
	entry.FinalPath = finalPath.String
	entry.CreatedAt = parseTime(createdAt)
	entry.StartedAt = parseTime(startedAt.String)
	entry.FinishedAt = parseTime(finishedAt.String)
	entry.Results = map[string]any{}
	if err := json.Unmarshal([]byte(resultsJSON), &entry.Results); err != nil {
		return Entry{}, fmt.Errorf("decode results for %s: %w", entry.RequestID, err)
	}
	return entry, nil
}

func (s *Store) steps(ctx context.Context, requestID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, summary, started_at, finished_at FROM run_steps WHERE request_id = ? ORDER BY position`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var (
			step                  StepRecord
			status                string
			summary               sql.NullString
			startedAt, finishedAt sql.NullString
		)
		if err := rows.Scan(&step.Name, &status, &summary, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Status = queue.StepStatus(status)
		step.Summary = summary.String
		step.StartedAt = parseTime(startedAt.String)
		step.FinishedAt = parseTime(finishedAt.String)
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
