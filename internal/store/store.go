package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the optional Postgres archive.
type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) Close() {
	s.Pool.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS daily_visits (
	id          TEXT PRIMARY KEY,
	location_id TEXT NOT NULL,
	code        TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	first_seen  TIMESTAMPTZ NOT NULL,
	last_seen   TIMESTAMPTZ NOT NULL,
	reported_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS daily_visits_location_reported_idx
	ON daily_visits (location_id, reported_at DESC);
`

// EnsureSchema creates the archive table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schemaSQL)
	return err
}
