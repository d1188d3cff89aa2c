// Package postgres stores key-value entries in the kv_entries table.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"resume-builder/internal/shared/storage/kv"
)

// Store implements kv.Store using Postgres.
type Store struct {
	DB *sql.DB
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM kv_entries WHERE key = $1`
	var value string
	err := s.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	const query = `
INSERT INTO kv_entries (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	_, err := s.DB.ExecContext(ctx, query, key, value)
	return err
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

var _ kv.Store = (*Store)(nil)
