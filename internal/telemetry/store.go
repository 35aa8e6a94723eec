package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// SQLiteStore appends search events to the search_log table.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS search_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TIMESTAMP NOT NULL,
	query TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	top_method TEXT NOT NULL,
	latency_ms INTEGER NOT NULL,
	latency_bucket TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_log_ts ON search_log(ts);
`

// OpenSQLiteStore opens (or creates) the log database at path. The path
// ":memory:" opens a private in-memory database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, caterrors.New(caterrors.ErrCodeQueryLogFailed, "failed to create query log directory", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, caterrors.New(caterrors.ErrCodeQueryLogFailed, "failed to open query log", err)
	}

	// Single writer; also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, caterrors.New(caterrors.ErrCodeQueryLogFailed, "failed to set pragma", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, caterrors.New(caterrors.ErrCodeQueryLogFailed, "failed to create search_log schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Insert appends one event.
func (s *SQLiteStore) Insert(ctx context.Context, e Event) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_log (ts, query, result_count, top_method, latency_ms, latency_bucket)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ts.UTC(), e.Query, e.ResultCount, e.TopMethod, e.Latency.Milliseconds(), string(LatencyToBucket(e.Latency)))
	if err != nil {
		return fmt.Errorf("insert search log: %w", err)
	}
	return nil
}

// Stats aggregates the whole log.
func (s *SQLiteStore) Stats(ctx context.Context, zeroLimit int) (*Snapshot, error) {
	snap := &Snapshot{
		MethodCounts:        make(map[string]int64),
		LatencyDistribution: make(map[LatencyBucket]int64),
		ZeroResultQueries:   []string{},
	}

	var since sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN result_count = 0 THEN 1 ELSE 0 END), 0), MIN(ts)
		FROM search_log
	`).Scan(&snap.TotalSearches, &snap.ZeroResultCount, &since)
	if err != nil {
		return nil, fmt.Errorf("count search log: %w", err)
	}
	if since.Valid {
		snap.Since = parseTimestamp(since.String)
	}

	if err := s.groupCounts(ctx, "top_method", func(k string, n int64) { snap.MethodCounts[k] = n }); err != nil {
		return nil, err
	}
	if err := s.groupCounts(ctx, "latency_bucket", func(k string, n int64) { snap.LatencyDistribution[LatencyBucket(k)] = n }); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT query FROM search_log
		WHERE result_count = 0
		ORDER BY id DESC
		LIMIT ?
	`, zeroLimit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result searches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.ZeroResultQueries = append(snap.ZeroResultQueries, q)
	}
	return snap, rows.Err()
}

// groupCounts runs COUNT(*) GROUP BY column. column is a fixed identifier.
func (s *SQLiteStore) groupCounts(ctx context.Context, column string, add func(string, int64)) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM search_log GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("group search log by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		add(key, n)
	}
	return rows.Err()
}

// parseTimestamp reads the text form modernc/sqlite stores for time.Time.
func parseTimestamp(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999 -0700 MST",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
