package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite" // register the sqlite driver
)

// SQLiteName is the database file name inside the cache directory.
const SQLiteName = "environments.db"

const schema = `CREATE TABLE IF NOT EXISTS listings (
	env       TEXT PRIMARY KEY,
	lines     TEXT NOT NULL,
	stored_at INTEGER NOT NULL
)`

// SQLiteStore keeps listings in a SQLite database, one row per environment.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *log.Logger
}

// OpenSQLite opens (creating if needed) the database in dir.
func OpenSQLite(ctx context.Context, dir string, ttl time.Duration, logger *log.Logger) (*SQLiteStore, error) {
	if dir == "" {
		return nil, errors.New("sqlite cache: no directory configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	u := url.URL{
		Scheme: `file`,
		Opaque: filepath.Join(dir, SQLiteName),
		RawQuery: url.Values{
			"_pragma": {
				"busy_timeout(5000)",
				"journal_mode(WAL)",
			},
		}.Encode(),
	}
	db, err := sql.Open(`sqlite`, u.String())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	logger.Debug("opened sqlite cache", "path", u.Opaque)
	return &SQLiteStore{db: db, ttl: ttl, logger: logger}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, env string) (Lookup, error) {
	var lines string
	var storedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT lines, stored_at FROM listings WHERE env = ?`, env).Scan(&lines, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Miss, nil
	}
	if err != nil {
		return Miss, fmt.Errorf("sqlite cache: reading %s: %w", env, err)
	}
	t := time.Unix(storedAt, 0).UTC()
	if expired(t, s.ttl) {
		return Miss, nil
	}
	return Lookup{Lines: splitLines(lines), Hit: true, StoredAt: t}, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, env string, lines []string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (env, lines, stored_at) VALUES (?, ?, ?)
		ON CONFLICT (env) DO UPDATE SET lines = excluded.lines, stored_at = excluded.stored_at`,
		env, strings.Join(lines, "\n"), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite cache: writing %s: %w", env, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, envs ...string) error {
	for _, env := range envs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE env = ?`, env); err != nil {
			return fmt.Errorf("sqlite cache: deleting %s: %w", env, err)
		}
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return fmt.Errorf("sqlite cache: clearing: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
