package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// snapshotKey is the single row the roster snapshot lives in
const snapshotKey = "raids"

// SQLiteSnapshotStore keeps the snapshot as one row of a state table
type SQLiteSnapshotStore struct {
	db *sql.DB
}

// NewSQLiteSnapshotStore opens (or creates) the database file and its state table
func NewSQLiteSnapshotStore(ctx context.Context, path string) (*SQLiteSnapshotStore, error) {
	if path == "" {
		path = "raidbot.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrConnection, err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create state table: %v", ErrQuery, err)
	}
	return &SQLiteSnapshotStore{db: db}, nil
}

// Load reads the snapshot row
func (s *SQLiteSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, snapshotKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select state: %v", ErrQuery, err)
	}
	return payload, nil
}

// Save upserts the snapshot row inside a transaction
func (s *SQLiteSnapshotStore) Save(ctx context.Context, payload []byte) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrQuery, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		snapshotKey, payload); err != nil {
		return fmt.Errorf("%w: upsert state: %v", ErrQuery, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrQuery, err)
	}
	return nil
}

// Ping checks the database handle
func (s *SQLiteSnapshotStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

func (s *SQLiteSnapshotStore) Close() error { return s.db.Close() }
