// Package sqlite provides a dedup store in an embedded SQLite database.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func init() {
	// sqlx only knows the cgo driver name; modernc registers as "sqlite".
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS sent_jobs (
	url     TEXT PRIMARY KEY,
	sent_at TIMESTAMP NOT NULL
)`

type sentJob struct {
	URL    string    `db:"url"`
	SentAt time.Time `db:"sent_at"`
}

// DedupStore records delivered apply links in a sent_jobs table.
type DedupStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenDedupStore opens (creating if needed) the database at path and
// ensures the schema exists.
func OpenDedupStore(ctx context.Context, path string) (*DedupStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := sqlx.ConnectContext(pingCtx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sent_jobs table: %w", err)
	}
	return &DedupStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Contains reports whether key was delivered.
func (s *DedupStore) Contains(ctx context.Context, key string) (bool, error) {
	var exists int
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM sent_jobs WHERE url = ?)`, key)
	if err != nil {
		return false, fmt.Errorf("query sent_jobs: %w", err)
	}
	return exists == 1, nil
}

// Add records key; adding an existing key is a no-op.
func (s *DedupStore) Add(ctx context.Context, key string) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO sent_jobs (url, sent_at) VALUES (:url, :sent_at) ON CONFLICT(url) DO NOTHING`,
		sentJob{URL: key, SentAt: s.now()})
	if err != nil {
		return fmt.Errorf("insert sent_jobs: %w", err)
	}
	return nil
}

// Len returns the number of recorded keys.
func (s *DedupStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sent_jobs`); err != nil {
		return 0, fmt.Errorf("count sent_jobs: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *DedupStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
