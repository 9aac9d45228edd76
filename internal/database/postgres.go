package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const defaultPostgresDSN = "postgres://localhost/raidbot?sslmode=disable"

// PostgresSnapshotStore keeps the snapshot as one row of a state table
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore connects through pgx and ensures the state table exists
func NewPostgresSnapshotStore(ctx context.Context, dsn string) (*PostgresSnapshotStore, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", ErrConnection, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", ErrConnection, err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS raidbot_state (
		bucket TEXT PRIMARY KEY,
		payload BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create state table: %v", ErrQuery, err)
	}
	return &PostgresSnapshotStore{db: db}, nil
}

// Load reads the snapshot row
func (s *PostgresSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM raidbot_state WHERE bucket = $1`, snapshotKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select state: %v", ErrQuery, err)
	}
	return payload, nil
}

// Save upserts the snapshot row
func (s *PostgresSnapshotStore) Save(ctx context.Context, payload []byte) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO raidbot_state (bucket, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		snapshotKey, payload); err != nil {
		return fmt.Errorf("%w: upsert state: %v", ErrQuery, err)
	}
	return nil
}

// Ping checks the connection pool
func (s *PostgresSnapshotStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Close() error { return s.db.Close() }
