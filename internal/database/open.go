package database

import (
	"context"
	"fmt"
)

// Open builds and connects the SnapshotStore selected by cfg.Driver
func Open(ctx context.Context, cfg Config) (SnapshotStore, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFileSnapshotStore(cfg.Path)
	case DriverSQLite:
		return NewSQLiteSnapshotStore(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return NewPostgresSnapshotStore(ctx, cfg.PostgresDSN)
	case DriverS3:
		return NewS3SnapshotStore(ctx, cfg)
	case DriverSurreal:
		store := NewSurrealSnapshotStore(cfg)
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory:
		return NewMemorySnapshotStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
