// Package store provides expiring key-value storage backends for SyncPost.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backed stores for persistent deployments. All backends expose
// the same KV contract: string values with a per-key time-to-live, an
// atomic conditional set for idempotency markers, and expired keys that
// behave as absent.
package store

import (
	"strings"
	"sync"
	"time"
)

// KV is the expiring key-value contract consumed by the mapping store and
// the dedup guard.
type KV interface {
	// Get returns the live value for key. Absent and expired keys return
	// found=false with no error.
	Get(key string) (value string, found bool, err error)

	// Set writes value under key with the given TTL, replacing any prior
	// value unconditionally.
	Set(key, value string, ttl time.Duration) error

	// SetIfAbsent writes value under key only when the key has no live
	// value. Returns true when the write happened. The check-and-set is
	// atomic within a single backend.
	SetIfAbsent(key, value string, ttl time.Duration) (bool, error)

	// PurgeExpired deletes expired rows and returns how many were removed.
	PurgeExpired() (int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL-style connection strings
// and "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-memory KV store with TTL support.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// Compile-time check that MemoryStore implements KV.
var _ KV = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.expiresAt.After(s.now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) SetIfAbsent(key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.expiresAt.After(s.now()) {
		return false, nil
	}
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryStore) PurgeExpired() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	now := s.now()
	for key, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
