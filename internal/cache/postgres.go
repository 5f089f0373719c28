package cache

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchemaV1 = `
CREATE TABLE IF NOT EXISTS lookup_cache (
  key       TEXT PRIMARY KEY,
  value     TEXT NOT NULL,
  stored_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lookup_cache_stored_at
  ON lookup_cache(stored_at);
`

type PostgresOption func(*PostgresStore)

func WithPostgresNowFunc(now func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// PostgresStore shares lookup results across machines, typically a CI fleet
// aligning the same project set against one service.
type PostgresStore struct {
	db    *sql.DB
	nowFn func() time.Time
	ttl   time.Duration
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string, ttl time.Duration, opts ...PostgresOption) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty postgres dsn")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &PostgresStore{
		db:    db,
		nowFn: time.Now,
		ttl:   ttl,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.db.ExecContext(ctx, postgresSchemaV1); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, stored_at FROM lookup_cache WHERE key = $1;`, key,
	).Scan(&e.Key, &e.Value, &e.StoredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.StoredAt = e.StoredAt.UTC()
	if expired(e.StoredAt, s.ttl, s.nowFn()) {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	now := s.nowFn().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO lookup_cache(key, value, stored_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, stored_at = EXCLUDED.stored_at;
`, e.Key, e.Value, now)
	return err
}

func (s *PostgresStore) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.nowFn().UTC().Add(-s.ttl)
	res, err := s.db.ExecContext(ctx, `DELETE FROM lookup_cache WHERE stored_at <= $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
