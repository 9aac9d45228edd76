// Package repository implements the roster store.
//
// RaidRepository holds every raid in memory and writes the whole set to a
// database.SnapshotStore after each change. Mutations run under one write
// lock together with their save; if the save fails after its retries the
// in-memory change is rolled back and ErrSnapshotSave is returned.
//
// # Mutations
//
//   - Create: register a raid at unique message coordinates
//   - Remove: drop a raid
//   - Mutate: run a function against one raid's copy and commit it
//   - MutateAll: run a function against every raid in a single save
//
// Readers (List, ListByGuild, Get, FindByMessage) receive clones, so callers
// may hold them without locking.
//
// # Example Usage
//
//	repo := repository.NewRaidRepository(repository.RaidRepositoryConfig{
//	    Store: store,
//	    Codec: database.JSONCodec{},
//	})
//	if err := repo.Load(ctx); err != nil {
//	    return err
//	}
//	raid, err := repo.Mutate(ctx, raidID, func(raid *model.Raid) error {
//	    raid.Title = "Weekly Clear"
//	    return nil
//	})
//	if errors.Is(err, database.ErrNotFound) {
//	    // unknown raid
//	}
package repository
