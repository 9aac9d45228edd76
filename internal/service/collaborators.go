package service

import (
	"context"

	"github.com/danifischer/raidbot/internal/model"
)

// RaidRepositoryInterface defines the Roster Store operations the services need
type RaidRepositoryInterface interface {
	List() []*model.Raid
	ListByGuild(guildID uint64) []*model.Raid
	Get(raidID string) *model.Raid
	FindByMessage(guildID, channelID, messageID uint64) *model.Raid
	Create(ctx context.Context, raid *model.Raid, guildID, channelID, messageID uint64) (*model.Raid, error)
	Remove(ctx context.Context, raidID string) (*model.Raid, error)
	Mutate(ctx context.Context, raidID string, fn func(raid *model.Raid) error) (*model.Raid, error)
	MutateAll(ctx context.Context, fn func(raid *model.Raid) (bool, error)) ([]string, error)
}

// AccountDirectory resolves the game accounts users have linked
type AccountDirectory interface {
	// ListAccounts returns the user's account names of the given type; empty means none linked
	ListAccounts(ctx context.Context, guildID, userID uint64, accountType string) ([]string, error)
	// DisplayName returns the user's configured nickname, or "" if none is set
	DisplayName(ctx context.Context, guildID, userID uint64) (string, error)
}

// Platform is the chat platform the roster message lives on
type Platform interface {
	RenderRoster(ctx context.Context, raid *model.Raid) error
	RemoveReaction(ctx context.Context, channelID, messageID, userID uint64, emoji string) error
	SendDirectMessage(ctx context.Context, userID uint64, text string) error
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
}

// ConversationTracker runs the private sign-up dialogue for users who are not
// on the roster yet
type ConversationTracker interface {
	HasPendingConversation(userID uint64) bool
	OpenSignUpConversation(ctx context.Context, event model.ReactionEvent, raid *model.Raid, availability model.Availability) error
}

// Recorder receives roster metrics; a nil Recorder is allowed
type Recorder interface {
	RosterMutation(op string, err error)
	Reaction(outcome model.ReactionOutcome)
	Conversations(open int)
}

type nopRecorder struct{}

func (nopRecorder) RosterMutation(string, error)   {}
func (nopRecorder) Reaction(model.ReactionOutcome) {}
func (nopRecorder) Conversations(int)              {}
