package database

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// SurrealSnapshotStore keeps the snapshot as a single SurrealDB record.
// The payload is base64 encoded so any codec's bytes survive the round trip.
type SurrealSnapshotStore struct {
	db     *surrealdb.DB
	config Config
}

type surrealSnapshot struct {
	Payload string `json:"payload"`
}

// NewSurrealSnapshotStore creates a new SurrealSnapshotStore; call Connect before use
func NewSurrealSnapshotStore(cfg Config) *SurrealSnapshotStore {
	return &SurrealSnapshotStore{
		config: cfg,
	}
}

// Connect establishes a connection to SurrealDB
func (s *SurrealSnapshotStore) Connect(ctx context.Context) error {
	endpoint := fmt.Sprintf("ws://%s:%s", s.config.SurrealHost, s.config.SurrealPort)

	db, err := surrealdb.FromEndpointURLString(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	// Sign in as root user
	_, err = db.SignIn(ctx, &surrealdb.Auth{
		Username: s.config.SurrealUser,
		Password: s.config.SurrealPassword,
	})
	if err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("%w: signin failed: %v", ErrConnection, err)
	}

	if err := db.Use(ctx, s.config.SurrealNamespace, s.config.SurrealDatabase); err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("%w: use failed: %v", ErrConnection, err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SurrealSnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close(context.Background())
	}
	return nil
}

// Ping checks the database connection
func (s *SurrealSnapshotStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrConnection
	}
	if _, err := s.db.Version(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Load reads the snapshot record
func (s *SurrealSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	records, err := s.query(ctx,
		"SELECT payload FROM type::thing('raidbot_state', $bucket)",
		map[string]interface{}{"bucket": snapshotKey},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0].Payload == "" {
		return nil, ErrNotFound
	}
	data, err := base64.StdEncoding.DecodeString(records[0].Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return data, nil
}

// Save upserts the snapshot record
func (s *SurrealSnapshotStore) Save(ctx context.Context, payload []byte) error {
	_, err := s.query(ctx,
		"UPSERT type::thing('raidbot_state', $bucket) CONTENT { payload: $payload, updated_at: time::now() }",
		map[string]interface{}{
			"bucket":  snapshotKey,
			"payload": base64.StdEncoding.EncodeToString(payload),
		},
	)
	return err
}

// query runs a single statement and returns its records
func (s *SurrealSnapshotStore) query(ctx context.Context, query string, vars map[string]interface{}) ([]surrealSnapshot, error) {
	if s.db == nil {
		return nil, ErrConnection
	}

	results, err := surrealdb.Query[[]surrealSnapshot](ctx, s.db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	first := (*results)[0]
	if first.Status != "OK" {
		if first.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrQuery, first.Error.Message)
		}
		return nil, ErrQuery
	}
	return first.Result, nil
}
