package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danifischer/raidbot/internal/database"
	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/repository"
)

// ============================================================================
// Mock Collaborators
// ============================================================================

type mockAccounts struct {
	listAccountsFunc func(ctx context.Context, guildID, userID uint64, accountType string) ([]string, error)
	displayNameFunc  func(ctx context.Context, guildID, userID uint64) (string, error)
}

func (m *mockAccounts) ListAccounts(ctx context.Context, guildID, userID uint64, accountType string) ([]string, error) {
	if m.listAccountsFunc != nil {
		return m.listAccountsFunc(ctx, guildID, userID, accountType)
	}
	return []string{"Account.1234"}, nil
}

func (m *mockAccounts) DisplayName(ctx context.Context, guildID, userID uint64) (string, error) {
	if m.displayNameFunc != nil {
		return m.displayNameFunc(ctx, guildID, userID)
	}
	return "", nil
}

type removedReaction struct {
	MessageID uint64
	UserID    uint64
	Emoji     string
}

type sentMessage struct {
	UserID uint64
	Text   string
}

type mockPlatform struct {
	renderErr error
	dmErr     error
	deleteErr error

	mu        sync.Mutex
	renders   []string
	reactions []removedReaction
	messages  []sentMessage
	deleted   []uint64
}

func (m *mockPlatform) RenderRoster(_ context.Context, raid *model.Raid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renders = append(m.renders, raid.ID)
	return m.renderErr
}

func (m *mockPlatform) RemoveReaction(_ context.Context, _, messageID, userID uint64, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, removedReaction{MessageID: messageID, UserID: userID, Emoji: emoji})
	return nil
}

func (m *mockPlatform) SendDirectMessage(_ context.Context, userID uint64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dmErr != nil {
		return m.dmErr
	}
	m.messages = append(m.messages, sentMessage{UserID: userID, Text: text})
	return nil
}

func (m *mockPlatform) DeleteMessage(_ context.Context, _, messageID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return m.deleteErr
}

func (m *mockPlatform) renderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.renders)
}

func (m *mockPlatform) clearedReactions() []removedReaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]removedReaction(nil), m.reactions...)
}

func (m *mockPlatform) sentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.messages...)
}

type recordedMutation struct {
	Op  string
	Err error
}

type mockRecorder struct {
	mu            sync.Mutex
	mutations     []recordedMutation
	outcomes      []model.ReactionOutcome
	conversations []int
}

func (m *mockRecorder) RosterMutation(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations = append(m.mutations, recordedMutation{Op: op, Err: err})
}

func (m *mockRecorder) Reaction(outcome model.ReactionOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockRecorder) Conversations(open int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = append(m.conversations, open)
}

// ============================================================================
// Fixtures
// ============================================================================

const (
	testGuildID   uint64 = 100
	testChannelID uint64 = 200
)

type rosterFixture struct {
	store    *database.MemorySnapshotStore
	repo     *repository.RaidRepository
	platform *mockPlatform
	accounts *mockAccounts
	recorder *mockRecorder
	roster   *RosterService
}

func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()
	f := &rosterFixture{
		store:    database.NewMemorySnapshotStore(),
		platform: &mockPlatform{},
		accounts: &mockAccounts{},
		recorder: &mockRecorder{},
	}
	f.repo = repository.NewRaidRepository(repository.RaidRepositoryConfig{
		Store:         f.store,
		SaveTries:     1,
		RetryInterval: time.Millisecond,
	})
	f.roster = NewRosterService(RosterServiceConfig{
		RaidRepo: f.repo,
		Accounts: f.accounts,
		Platform: f.platform,
		Templates: map[string][]model.CreateRaidRoleRequest{
			"Fractal": {{Name: "Tank", Capacity: 1}, {Name: "DPS", Capacity: 4}},
		},
		DefaultAccountType: "gw2",
		Recorder:           f.recorder,
	})
	return f
}

// newRaid creates a raid rendered at messageID with a Tank(1) and Healer(2) role
func (f *rosterFixture) newRaid(t *testing.T, messageID uint64) *model.Raid {
	t.Helper()
	raid, err := f.roster.CreateRaid(context.Background(), testGuildID, &model.CreateRaidRequest{
		ChannelID: testChannelID,
		MessageID: messageID,
		Title:     "Raid night",
		StartTime: time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC),
		Roles: []model.CreateRaidRoleRequest{
			{Name: "Tank", Capacity: 1},
			{Name: "Healer", Capacity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create raid: %v", err)
	}
	return raid
}

func linked(userID uint64) LinkedCandidate {
	return LinkedCandidate{UserID: userID, Username: "user", AccountName: "Account.1234"}
}
