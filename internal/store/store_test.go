package store

import (
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set("tg_1", `{"Telegram":"99"}`, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, found, err := s.Get("tg_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || v != `{"Telegram":"99"}` {
		t.Errorf("expected stored value, got found=%v value=%q", found, v)
	}
	if _, found, _ := s.Get("missing"); found {
		t.Error("missing key reported as found")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	s.now = func() time.Time { return base }
	if err := s.Set("proc_1", "1", 5*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.now = func() time.Time { return base.Add(6 * time.Minute) }
	if _, found, _ := s.Get("proc_1"); found {
		t.Error("expired key still visible")
	}
}

func TestMemoryStoreSetIfAbsent(t *testing.T) {
	s := NewMemoryStore()
	ok, err := s.SetIfAbsent("proc_42", "1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("first conditional set refused")
	}
	ok, err = s.SetIfAbsent("proc_42", "1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("second conditional set on live key succeeded")
	}
}

func TestMemoryStoreSetIfAbsentAcceptsExpired(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	s.now = func() time.Time { return base }
	if _, err := s.SetIfAbsent("proc_7", "1", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	ok, err := s.SetIfAbsent("proc_7", "1", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("conditional set refused an expired key")
	}
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	s.now = func() time.Time { return base }
	s.Set("a", "1", time.Minute)
	s.Set("b", "1", time.Hour)
	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	n, err := s.PurgeExpired()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged entry, got %d", n)
	}
	if _, found, _ := s.Get("b"); !found {
		t.Error("live key purged")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(WithSQLiteDSN(filepath.Join(t.TempDir(), "syncpost.db")))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()

	if err := s.Set("tg_123", `{"Mastodon":"abc"}`, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, found, err := s.Get("tg_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || v != `{"Mastodon":"abc"}` {
		t.Errorf("round trip failed: found=%v value=%q", found, v)
	}

	// An already-expired row behaves as absent and is overwritable.
	if err := s.Set("stale", "old", -time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found, _ := s.Get("stale"); found {
		t.Error("expired key still visible")
	}
	ok, err := s.SetIfAbsent("stale", "new", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("conditional set refused an expired key")
	}
	ok, err = s.SetIfAbsent("stale", "newer", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("conditional set on live key succeeded")
	}
	v, _, _ = s.Get("stale")
	if v != "new" {
		t.Errorf("expected value from winning conditional set, got %q", v)
	}

	if err := s.Set("gone", "1", -time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err := s.PurgeExpired()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least one purged row, got %d", n)
	}
}

func TestPostgresStore(t *testing.T) {
	// This test requires a running PostgreSQL instance.
	// Set the DATABASE_URL environment variable for connection string.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	s, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()
	s.db.Exec("DELETE FROM kv_entries")

	if err := s.Set("tg_1", "v", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, found, err := s.Get("tg_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || v != "v" {
		t.Errorf("round trip failed: found=%v value=%q", found, v)
	}
	ok, err := s.SetIfAbsent("tg_1", "w", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("conditional set on live key succeeded")
	}
}

func TestDetectDSNType(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost/db":    "postgres",
		"postgresql://u:p@localhost/db":  "postgres",
		"host=localhost dbname=syncpost": "postgres",
		"/var/lib/syncpost/syncpost.db":  "sqlite",
		"syncpost.db":                    "sqlite",
	}
	for dsn, want := range cases {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
