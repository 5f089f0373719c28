package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchemaVersion = 1

const sqliteSchemaV1 = `
CREATE TABLE IF NOT EXISTS lookup_cache (
  key       TEXT PRIMARY KEY,
  value     TEXT NOT NULL,
  stored_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lookup_cache_stored_at
  ON lookup_cache(stored_at);
`

type SQLiteOption func(*SQLiteStore)

func WithSQLiteNowFunc(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// SQLiteStore persists lookup results in a local database file so repeated
// builds on the same machine reuse them.
type SQLiteStore struct {
	db    *sql.DB
	nowFn func() time.Time
	ttl   time.Duration
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string, ttl time.Duration, opts ...SQLiteOption) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("empty db path")
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:    db,
		nowFn: time.Now,
		ttl:   ttl,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	ctx := context.Background()

	var journalMode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL;").Scan(&journalMode); err != nil {
		return fmt.Errorf("sqlite: set journal_mode=wal: %w", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		return fmt.Errorf("sqlite: journal_mode=%q, want wal", journalMode)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;"); err != nil {
		return fmt.Errorf("sqlite: set synchronous=normal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout=5000;"); err != nil {
		return fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	return s.migrate(ctx)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE;"); err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_, _ = conn.ExecContext(ctx, "ROLLBACK;")
	}()

	if _, err := conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER NOT NULL
);
`); err != nil {
		return fmt.Errorf("sqlite: init migrations table: %w", err)
	}

	var current int
	hasVersion := true
	if err := conn.QueryRowContext(ctx, `SELECT version FROM schema_migrations LIMIT 1;`).Scan(&current); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlite: read schema_version: %w", err)
		}
		current, hasVersion = 0, false
	}
	if current > sqliteSchemaVersion {
		return fmt.Errorf("sqlite: schema_version=%d, want <=%d", current, sqliteSchemaVersion)
	}

	for v := current + 1; v <= sqliteSchemaVersion; v++ {
		switch v {
		case 1:
			if _, err := conn.ExecContext(ctx, sqliteSchemaV1); err != nil {
				return fmt.Errorf("sqlite: migrate v1: %w", err)
			}
		default:
			return fmt.Errorf("sqlite: unknown migration %d", v)
		}
	}

	if !hasVersion || current != sqliteSchemaVersion {
		if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO schema_migrations(rowid, version) VALUES (1, ?);`, sqliteSchemaVersion); err != nil {
			return fmt.Errorf("sqlite: write schema_version: %w", err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT;"); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, error) {
	var (
		e        Entry
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, stored_at FROM lookup_cache WHERE key = ?;`, key,
	).Scan(&e.Key, &e.Value, &storedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.StoredAt = time.Unix(storedAt, 0).UTC()
	if expired(e.StoredAt, s.ttl, s.nowFn()) {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	now := s.nowFn().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO lookup_cache(key, value, stored_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at;
`, e.Key, e.Value, now.Unix())
	return err
}

func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.nowFn().UTC().Add(-s.ttl)
	res, err := s.db.ExecContext(ctx, `DELETE FROM lookup_cache WHERE stored_at <= ?;`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
