package database

import (
	"context"
	"errors"
)

// Standard errors for snapshot storage.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested record (or any snapshot at all) does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a record with the same unique key already exists.
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the backend.
	ErrConnection = errors.New("storage connection error")

	// ErrQuery indicates a read or write against the backend failed.
	ErrQuery = errors.New("storage query error")

	// ErrCorrupt indicates a stored snapshot could not be decoded.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// SnapshotStore persists one opaque snapshot blob. Save replaces the previous
// snapshot in a single write, so a failed Save leaves the old snapshot intact.
type SnapshotStore interface {
	// Load returns the current snapshot, or ErrNotFound if none was saved
	Load(ctx context.Context) ([]byte, error)

	// Save atomically replaces the snapshot
	Save(ctx context.Context, payload []byte) error

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}

// Driver names a SnapshotStore backend
type Driver string

// Supported drivers
const (
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverS3       Driver = "s3"
	DriverSurreal  Driver = "surrealdb"
	DriverMemory   Driver = "memory"
)

// Drivers lists every supported backend
func Drivers() []Driver {
	return []Driver{DriverFile, DriverSQLite, DriverPostgres, DriverS3, DriverSurreal, DriverMemory}
}

// Config holds settings for every backend; only the fields of the selected
// driver are read
type Config struct {
	Driver Driver

	// file
	Path string

	// sqlite
	SQLitePath string

	// postgres
	PostgresDSN string

	// s3
	S3Bucket    string
	S3Key       string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	// surrealdb
	SurrealHost      string
	SurrealPort      string
	SurrealUser      string
	SurrealPassword  string
	SurrealNamespace string
	SurrealDatabase  string
}
