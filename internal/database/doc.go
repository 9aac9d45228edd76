// Package database provides snapshot storage for the raid roster.
//
// The roster is persisted as one opaque blob that is replaced in full on every
// save. A torn write can only ever damage that single blob; there are no
// per-raid records that could drift out of step with each other.
//
// # SnapshotStore Interface
//
//	type SnapshotStore interface {
//	    Load(ctx context.Context) ([]byte, error)
//	    Save(ctx context.Context, payload []byte) error
//	    Ping(ctx context.Context) error
//	    Close() error
//	}
//
// # Drivers
//
//   - file: temp file + fsync + rename in the snapshot's directory
//   - sqlite: one row in a state table (modernc.org/sqlite, no cgo)
//   - postgres: one row in a state table via pgx's database/sql driver
//   - s3: one object, PutObject replaces it atomically (works with MinIO)
//   - surrealdb: one record, payload base64 encoded
//   - memory: process memory, for tests
//
// Open picks the driver from Config.Driver:
//
//	store, err := database.Open(ctx, database.Config{Driver: database.DriverFile, Path: "data/raids.json"})
//
// # Codecs
//
// A Codec turns the raid map into a payload. JSONCodec is the default and
// keeps snapshots readable; CBORCodec is compact. Both key struct fields by
// their json tags.
//
// # Error Handling
//
//   - ErrNotFound: nothing saved yet (treated as an empty roster)
//   - ErrConnection: the backend is unreachable
//   - ErrQuery: a read or write failed
//   - ErrCorrupt: a stored payload could not be decoded
//
// Use errors.Is() to check error types:
//
//	if errors.Is(err, database.ErrNotFound) {
//	    // start with an empty roster
//	}
package database
