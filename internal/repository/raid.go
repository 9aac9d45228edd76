package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/danifischer/raidbot/internal/database"
	"github.com/danifischer/raidbot/internal/model"
)

// ErrSnapshotSave indicates a mutation was rolled back because the snapshot
// could not be written
var ErrSnapshotSave = errors.New("snapshot save failed")

const (
	// maxIDAttempts bounds random ID draws before falling back to a UUID
	maxIDAttempts = 8

	defaultSaveTries     = 3
	defaultRetryInterval = 100 * time.Millisecond
)

// RaidRepositoryConfig holds dependencies for RaidRepository
type RaidRepositoryConfig struct {
	Store database.SnapshotStore
	Codec database.Codec

	// SaveTries is how many times a snapshot write is attempted (default 3)
	SaveTries uint
	// RetryInterval is the first backoff delay between attempts (default 100ms)
	RetryInterval time.Duration

	// OnSave, when set, is called after every snapshot write attempt sequence
	OnSave func(duration time.Duration, err error)

	// RandomID draws a candidate raid ID; defaults to a random decimal string
	RandomID func() string
}

// RaidRepository owns the authoritative raid set. The set lives in memory and
// is written to the SnapshotStore in full after every mutation, while the
// write lock is still held, so readers never observe unsaved state.
type RaidRepository struct {
	store         database.SnapshotStore
	codec         database.Codec
	saveTries     uint
	retryInterval time.Duration
	onSave        func(time.Duration, error)
	randomID      func() string

	mu    sync.RWMutex
	raids map[string]*model.Raid
}

// NewRaidRepository creates a new raid repository with an empty raid set; call Load to restore a snapshot
func NewRaidRepository(cfg RaidRepositoryConfig) *RaidRepository {
	r := &RaidRepository{
		store:         cfg.Store,
		codec:         cfg.Codec,
		saveTries:     cfg.SaveTries,
		retryInterval: cfg.RetryInterval,
		onSave:        cfg.OnSave,
		randomID:      cfg.RandomID,
		raids:         make(map[string]*model.Raid),
	}
	if r.codec == nil {
		r.codec = database.JSONCodec{}
	}
	if r.saveTries == 0 {
		r.saveTries = defaultSaveTries
	}
	if r.retryInterval <= 0 {
		r.retryInterval = defaultRetryInterval
	}
	if r.randomID == nil {
		r.randomID = func() string {
			return strconv.FormatUint(uint64(rand.Uint32N(math.MaxInt32)), 10)
		}
	}
	return r
}

// Load replaces the in-memory raid set with the stored snapshot.
// A missing snapshot yields an empty set; an undecodable one is an error.
func (r *RaidRepository) Load(ctx context.Context) error {
	payload, err := r.store.Load(ctx)
	if errors.Is(err, database.ErrNotFound) {
		r.mu.Lock()
		r.raids = make(map[string]*model.Raid)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	raids := make(map[string]*model.Raid)
	if err := r.codec.Unmarshal(payload, &raids); err != nil {
		return fmt.Errorf("%w: %v", database.ErrCorrupt, err)
	}
	for id, raid := range raids {
		if raid == nil {
			delete(raids, id)
			continue
		}
		if raid.Users == nil {
			raid.Users = make(map[uint64]model.RosterEntry)
		}
		raid.ID = id
	}

	r.mu.Lock()
	r.raids = raids
	r.mu.Unlock()
	return nil
}

// Save writes the current raid set
func (r *RaidRepository) Save(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saveLocked(ctx)
}

// saveLocked encodes and writes the snapshot, retrying with exponential backoff.
// Callers must hold r.mu.
func (r *RaidRepository) saveLocked(ctx context.Context) error {
	start := time.Now()
	err := r.writeSnapshot(ctx)
	if r.onSave != nil {
		r.onSave(time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotSave, err)
	}
	return nil
}

func (r *RaidRepository) writeSnapshot(ctx context.Context) error {
	payload, err := r.codec.Marshal(r.raids)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryInterval

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.store.Save(ctx, payload)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.saveTries))
	return err
}

// List returns copies of all raids ordered by creation time
func (r *RaidRepository) List() []*model.Raid {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raids := make([]*model.Raid, 0, len(r.raids))
	for _, raid := range r.raids {
		raids = append(raids, raid.Clone())
	}
	sort.Slice(raids, func(i, j int) bool {
		if !raids[i].CreatedOn.Equal(raids[j].CreatedOn) {
			return raids[i].CreatedOn.Before(raids[j].CreatedOn)
		}
		return raids[i].ID < raids[j].ID
	})
	return raids
}

// ListByGuild returns copies of the raids that belong to guildID
func (r *RaidRepository) ListByGuild(guildID uint64) []*model.Raid {
	all := r.List()
	raids := all[:0]
	for _, raid := range all {
		if raid.GuildID == guildID {
			raids = append(raids, raid)
		}
	}
	return raids
}

// Get returns a copy of the raid, or nil if it does not exist
func (r *RaidRepository) Get(raidID string) *model.Raid {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.raids[raidID].Clone()
}

// FindByMessage returns a copy of the raid rendered at the given message, or nil
func (r *RaidRepository) FindByMessage(guildID, channelID, messageID uint64) *model.Raid {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByMessageLocked(guildID, channelID, messageID).Clone()
}

func (r *RaidRepository) findByMessageLocked(guildID, channelID, messageID uint64) *model.Raid {
	for _, raid := range r.raids {
		if raid.MatchesMessage(guildID, channelID, messageID) {
			return raid
		}
	}
	return nil
}

// Count returns the number of raids held
func (r *RaidRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.raids)
}

// Create registers raid under the given message coordinates with a freshly
// generated ID and persists the set. It fails with database.ErrDuplicate if a
// raid is already rendered at those coordinates.
func (r *RaidRepository) Create(ctx context.Context, raid *model.Raid, guildID, channelID, messageID uint64) (*model.Raid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByMessageLocked(guildID, channelID, messageID) != nil {
		return nil, database.ErrDuplicate
	}

	stored := raid.Clone()
	stored.ID = r.newRaidIDLocked()
	stored.GuildID = guildID
	stored.ChannelID = channelID
	stored.MessageID = messageID
	if stored.Users == nil {
		stored.Users = make(map[uint64]model.RosterEntry)
	}
	now := time.Now().UTC()
	stored.CreatedOn = now
	stored.UpdatedOn = now

	r.raids[stored.ID] = stored
	if err := r.saveLocked(ctx); err != nil {
		delete(r.raids, stored.ID)
		return nil, err
	}
	return stored.Clone(), nil
}

// newRaidIDLocked draws random IDs until one is free, falling back to a UUID
// after maxIDAttempts collisions. Callers must hold r.mu.
func (r *RaidRepository) newRaidIDLocked() string {
	for i := 0; i < maxIDAttempts; i++ {
		id := r.randomID()
		if _, taken := r.raids[id]; !taken && id != "" {
			return id
		}
	}
	for {
		id := uuid.NewString()
		if _, taken := r.raids[id]; !taken {
			return id
		}
	}
}

// Remove deletes the raid and persists the set. It returns database.ErrNotFound
// if the raid does not exist.
func (r *RaidRepository) Remove(ctx context.Context, raidID string) (*model.Raid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raid, ok := r.raids[raidID]
	if !ok {
		return nil, database.ErrNotFound
	}
	delete(r.raids, raidID)
	if err := r.saveLocked(ctx); err != nil {
		r.raids[raidID] = raid
		return nil, err
	}
	return raid.Clone(), nil
}

// Mutate runs fn against the live raid while holding the write lock, then
// persists the set before releasing it. If fn fails, or the snapshot cannot be
// written, the raid is restored to its state before the call.
func (r *RaidRepository) Mutate(ctx context.Context, raidID string, fn func(raid *model.Raid) error) (*model.Raid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raid, ok := r.raids[raidID]
	if !ok {
		return nil, database.ErrNotFound
	}

	before := raid.Clone()
	if err := fn(raid); err != nil {
		r.raids[raidID] = before
		return nil, err
	}
	raid.UpdatedOn = time.Now().UTC()

	if err := r.saveLocked(ctx); err != nil {
		r.raids[raidID] = before
		return nil, err
	}
	return raid.Clone(), nil
}

// MutateAll runs fn against every raid under one write lock and persists the
// set once. fn reports whether it changed the raid; the IDs of changed raids
// are returned. Any failure restores every raid.
func (r *RaidRepository) MutateAll(ctx context.Context, fn func(raid *model.Raid) (bool, error)) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := make(map[string]*model.Raid, len(r.raids))
	for id, raid := range r.raids {
		before[id] = raid.Clone()
	}
	restore := func() {
		for id, raid := range before {
			r.raids[id] = raid
		}
	}

	var changed []string
	now := time.Now().UTC()
	for id, raid := range r.raids {
		ok, err := fn(raid)
		if err != nil {
			restore()
			return nil, err
		}
		if ok {
			raid.UpdatedOn = now
			changed = append(changed, id)
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}
	sort.Strings(changed)

	if err := r.saveLocked(ctx); err != nil {
		restore()
		return nil, err
	}
	return changed, nil
}
