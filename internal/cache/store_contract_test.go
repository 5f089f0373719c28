package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type storeFactory struct {
	name string
	new  func(t *testing.T, ttl time.Duration, now *time.Time) Store
}

func contractStoreFactories() []storeFactory {
	out := []storeFactory{
		{
			name: "memory",
			new: func(t *testing.T, ttl time.Duration, now *time.Time) Store {
				t.Helper()
				return NewMemoryStore(ttl,
					WithNowFunc(func() time.Time { return now.UTC() }),
				)
			},
		},
		{
			name: "sqlite",
			new: func(t *testing.T, ttl time.Duration, now *time.Time) Store {
				t.Helper()
				dbPath := filepath.Join(t.TempDir(), "depalign-cache.db")
				s, err := NewSQLiteStore(dbPath, ttl,
					WithSQLiteNowFunc(func() time.Time { return now.UTC() }),
				)
				if err != nil {
					t.Fatalf("new sqlite store: %v", err)
				}
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}

	dsn := strings.TrimSpace(os.Getenv("DEPALIGN_TEST_POSTGRES_DSN"))
	if dsn != "" {
		out = append(out, storeFactory{
			name: "postgres",
			new: func(t *testing.T, ttl time.Duration, now *time.Time) Store {
				t.Helper()
				s, err := NewPostgresStore(dsn, ttl,
					WithPostgresNowFunc(func() time.Time { return now.UTC() }),
				)
				if err != nil {
					t.Fatalf("new postgres store: %v", err)
				}
				t.Cleanup(func() {
					_, _ = s.db.ExecContext(context.Background(), `DELETE FROM lookup_cache;`)
					_ = s.Close()
				})
				return s
			},
		})
	}

	return out
}

func TestStoreContract_PutGet(t *testing.T) {
	for _, factory := range contractStoreFactories() {
		t.Run(factory.name, func(t *testing.T) {
			now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
			store := factory.new(t, time.Hour, &now)
			ctx := context.Background()

			if _, err := store.Get(ctx, "fp|org.acme:widget:1.0"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get before put: err=%v, want ErrNotFound", err)
			}

			if err := store.Put(ctx, Entry{Key: "fp|org.acme:widget:1.0", Value: "1.0.0.redhat-00001"}); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := store.Get(ctx, "fp|org.acme:widget:1.0")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Value != "1.0.0.redhat-00001" {
				t.Fatalf("value: got %q", got.Value)
			}
			if !got.StoredAt.Equal(now) {
				t.Fatalf("stored_at: got %v, want %v", got.StoredAt, now)
			}
		})
	}
}

func TestStoreContract_EmptyValueIsAHit(t *testing.T) {
	for _, factory := range contractStoreFactories() {
		t.Run(factory.name, func(t *testing.T) {
			now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
			store := factory.new(t, time.Hour, &now)
			ctx := context.Background()

			if err := store.Put(ctx, Entry{Key: "fp|org.acme:nomatch:2.0", Value: ""}); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := store.Get(ctx, "fp|org.acme:nomatch:2.0")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Value != "" {
				t.Fatalf("value: got %q, want empty", got.Value)
			}
		})
	}
}

func TestStoreContract_PutOverwrites(t *testing.T) {
	for _, factory := range contractStoreFactories() {
		t.Run(factory.name, func(t *testing.T) {
			now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
			store := factory.new(t, time.Hour, &now)
			ctx := context.Background()

			if err := store.Put(ctx, Entry{Key: "k", Value: "old"}); err != nil {
				t.Fatalf("put old: %v", err)
			}
			now = now.Add(10 * time.Minute)
			if err := store.Put(ctx, Entry{Key: "k", Value: "new"}); err != nil {
				t.Fatalf("put new: %v", err)
			}
			got, err := store.Get(ctx, "k")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Value != "new" {
				t.Fatalf("value: got %q, want new", got.Value)
			}
			if !got.StoredAt.Equal(now) {
				t.Fatalf("stored_at not refreshed: got %v", got.StoredAt)
			}
		})
	}
}

func TestStoreContract_TTLExpiry(t *testing.T) {
	for _, factory := range contractStoreFactories() {
		t.Run(factory.name, func(t *testing.T) {
			now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
			store := factory.new(t, time.Hour, &now)
			ctx := context.Background()

			if err := store.Put(ctx, Entry{Key: "k", Value: "v"}); err != nil {
				t.Fatalf("put: %v", err)
			}

			now = now.Add(59 * time.Minute)
			if _, err := store.Get(ctx, "k"); err != nil {
				t.Fatalf("get before expiry: %v", err)
			}

			now = now.Add(time.Minute)
			if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get at expiry: err=%v, want ErrNotFound", err)
			}

			pruned, err := store.Prune(ctx)
			if err != nil {
				t.Fatalf("prune: %v", err)
			}
			if pruned != 1 {
				t.Fatalf("pruned: got %d, want 1", pruned)
			}
		})
	}
}

func TestStoreContract_ZeroTTLNeverExpires(t *testing.T) {
	for _, factory := range contractStoreFactories() {
		t.Run(factory.name, func(t *testing.T) {
			now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
			store := factory.new(t, 0, &now)
			ctx := context.Background()

			if err := store.Put(ctx, Entry{Key: "k", Value: "v"}); err != nil {
				t.Fatalf("put: %v", err)
			}
			now = now.Add(365 * 24 * time.Hour)
			if _, err := store.Get(ctx, "k"); err != nil {
				t.Fatalf("get after a year: %v", err)
			}
			pruned, err := store.Prune(ctx)
			if err != nil {
				t.Fatalf("prune: %v", err)
			}
			if pruned != 0 {
				t.Fatalf("pruned: got %d, want 0", pruned)
			}
		})
	}
}

func TestSQLiteStore_ReopenKeepsEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "depalign-cache.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath, time.Hour)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := s.Put(ctx, Entry{Key: "k", Value: "v"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewSQLiteStore(dbPath, time.Hour)
	if err != nil {
		t.Fatalf("reopen sqlite store: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Value != "v" {
		t.Fatalf("value after reopen: got %q", got.Value)
	}
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore("   ", time.Hour); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
