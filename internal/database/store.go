package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/meshlink/internal/config"
	"github.com/rickgao/meshlink/internal/storage"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS session_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSQL = `
INSERT INTO session_store (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

// Store implements storage.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open connects to PostgreSQL and ensures the session_store table exists.
func Open(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create session_store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM session_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select %q: %w", key, err)
	}
	return value, nil
}

// Set implements storage.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM session_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
