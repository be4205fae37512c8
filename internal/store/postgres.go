// Package store provides expiring key-value storage backends for SyncPost.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a KV store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements KV.
var _ KV = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM kv_entries WHERE key = $1 AND expires_at > $2`,
		key, time.Now().Unix(),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get failed for %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(key, value string, ttl time.Duration) error {
	_, err := s.db.Exec(
		`INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, time.Now().Add(ttl).Unix(),
	)
	if err != nil {
		slog.Error("PostgresStore Set failed", "error", err, "key", key)
		return fmt.Errorf("kv set failed for %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent inserts key only when it has no live value. An expired row
// counts as absent and is overwritten in the same statement, keeping the
// check-and-set atomic.
func (s *PostgresStore) SetIfAbsent(key, value string, ttl time.Duration) (bool, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
		 WHERE kv_entries.expires_at <= $4`,
		key, value, now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		slog.Error("PostgresStore SetIfAbsent failed", "error", err, "key", key)
		return false, fmt.Errorf("kv conditional set failed for %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv conditional set failed for %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *PostgresStore) PurgeExpired() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM kv_entries WHERE expires_at <= $1`, time.Now().Unix())
	if err != nil {
		slog.Error("PostgresStore PurgeExpired failed", "error", err)
		return 0, fmt.Errorf("kv purge failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("kv purge failed: %w", err)
	}
	if n > 0 {
		slog.Debug("PostgresStore purged expired entries", "count", n)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
