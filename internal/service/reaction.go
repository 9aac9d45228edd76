package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danifischer/raidbot/internal/model"
)

// NoAccountMessage is sent privately when a user reacts without a linked
// account of the raid's account type
const NoAccountMessage = "No Account found, please add an Account with \"!user add %s <AccountName>\".\n\n**This command only works on a server.**"

// FlexOnlyMessage is sent privately when a user in the flex pool reacts with
// a main availability
const FlexOnlyMessage = "You are in the flex pool of this raid. Sign off from the flex pool first to sign up for a role."

// ReactionServiceConfig holds dependencies for ReactionService
type ReactionServiceConfig struct {
	Roster        *RosterService
	Accounts      AccountDirectory
	Platform      Platform
	Conversations ConversationTracker
	Symbols       model.ReactionSymbols
	Recorder      Recorder
}

// ReactionService reconciles reaction events on roster messages into roster
// changes. Reactions are momentary gestures: after handling, the triggering
// mark is cleared so the rendered roster stays the only source of state.
type ReactionService struct {
	roster        *RosterService
	accounts      AccountDirectory
	platform      Platform
	conversations ConversationTracker
	symbols       model.ReactionSymbols
	recorder      Recorder
}

// NewReactionService creates a new reaction service
func NewReactionService(cfg ReactionServiceConfig) *ReactionService {
	s := &ReactionService{
		roster:        cfg.Roster,
		accounts:      cfg.Accounts,
		platform:      cfg.Platform,
		conversations: cfg.Conversations,
		symbols:       cfg.Symbols,
		recorder:      cfg.Recorder,
	}
	if s.symbols == (model.ReactionSymbols{}) {
		s.symbols = model.DefaultReactionSymbols()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

// Symbols returns the reaction markers this service understands
func (s *ReactionService) Symbols() model.ReactionSymbols {
	return s.symbols
}

// HandleReaction applies one reaction event. Unknown raids and unknown
// markers are ignored. Errors are returned only for collaborator or storage
// failures; roster rule rejections are reported through the outcome.
func (s *ReactionService) HandleReaction(ctx context.Context, ev model.ReactionEvent) (model.ReactionResult, error) {
	result, err := s.handle(ctx, ev)
	if err != nil {
		slog.Error("reaction handling failed",
			slog.Uint64("user_id", ev.UserID),
			slog.Uint64("message_id", ev.MessageID),
			slog.String("error", err.Error()),
		)
		return result, err
	}
	s.recorder.Reaction(result.Outcome)
	slog.Debug("reaction handled",
		slog.String("raid_id", result.RaidID),
		slog.Uint64("user_id", ev.UserID),
		slog.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

func (s *ReactionService) handle(ctx context.Context, ev model.ReactionEvent) (model.ReactionResult, error) {
	raid := s.roster.FindByMessage(ev.GuildID, ev.ChannelID, ev.MessageID)
	if raid == nil {
		return model.ReactionResult{Outcome: model.OutcomeIgnored}, nil
	}
	result := model.ReactionResult{RaidID: raid.ID}

	intent := s.symbols.Intent(ev.Emoji)
	if intent == model.IntentNone {
		result.Outcome = model.OutcomeIgnored
		return result, nil
	}

	if intent == model.IntentSignOff {
		_, err := s.roster.RemoveUser(ctx, raid.ID, ev.UserID)
		switch {
		case errors.Is(err, ErrUserNotFound):
			// not registered; still refresh the message and clear the mark
			s.roster.render(ctx, raid)
		case err != nil:
			return result, err
		}
		s.clearReaction(ctx, ev)
		result.Outcome = model.OutcomeSignedOff
		return result, nil
	}

	accounts, err := s.accounts.ListAccounts(ctx, ev.GuildID, ev.UserID, raid.AccountType)
	if err != nil {
		return result, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		s.notifyUser(ctx, ev.UserID, fmt.Sprintf(NoAccountMessage, raid.AccountType))
		result.Outcome = model.OutcomeAccountMissing
		return result, nil
	}

	if intent == model.IntentFlex {
		outcome, err := s.openConversation(ctx, ev, raid, model.AvailabilityFlex)
		if err != nil {
			return result, err
		}
		s.clearReaction(ctx, ev)
		result.Outcome = outcome
		return result, nil
	}

	availability, _ := intent.Availability()

	_, registered := raid.Users[ev.UserID]
	if _, inFlex := raid.FlexEntry(ev.UserID); inFlex && !registered {
		s.notifyUser(ctx, ev.UserID, FlexOnlyMessage)
		s.clearReaction(ctx, ev)
		result.Outcome = model.OutcomeUnchanged
		return result, nil
	}

	if registered {
		change, err := s.roster.ChangeAvailability(ctx, raid.ID, ev.UserID, availability)
		switch {
		case errors.Is(err, ErrRoleFull):
			result.Outcome = model.OutcomeUnchanged
		case err != nil && IsRosterRule(err):
			// entry vanished between lookup and change
			result.Outcome = model.OutcomeUnchanged
		case err != nil:
			return result, err
		case change.Message == "":
			result.Outcome = model.OutcomeUnchanged
		default:
			result.Outcome = model.OutcomeAvailabilityChanged
		}
		s.clearReaction(ctx, ev)
		return result, nil
	}

	outcome, err := s.openConversation(ctx, ev, raid, availability)
	if err != nil {
		return result, err
	}
	s.clearReaction(ctx, ev)
	result.Outcome = outcome
	return result, nil
}

// openConversation starts the private role dialogue unless one is already
// pending for the user
func (s *ReactionService) openConversation(ctx context.Context, ev model.ReactionEvent, raid *model.Raid, availability model.Availability) (model.ReactionOutcome, error) {
	if s.conversations.HasPendingConversation(ev.UserID) {
		return model.OutcomeConversationPending, nil
	}
	if err := s.conversations.OpenSignUpConversation(ctx, ev, raid, availability); err != nil {
		if errors.Is(err, ErrConversationPending) {
			return model.OutcomeConversationPending, nil
		}
		return "", fmt.Errorf("open conversation: %w", err)
	}
	return model.OutcomeConversationOpened, nil
}

func (s *ReactionService) clearReaction(ctx context.Context, ev model.ReactionEvent) {
	if s.platform == nil {
		return
	}
	if err := s.platform.RemoveReaction(ctx, ev.ChannelID, ev.MessageID, ev.UserID, ev.Emoji); err != nil {
		slog.Warn("failed to clear reaction",
			slog.Uint64("message_id", ev.MessageID),
			slog.Uint64("user_id", ev.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ReactionService) notifyUser(ctx context.Context, userID uint64, text string) {
	if s.platform == nil {
		return
	}
	if err := s.platform.SendDirectMessage(ctx, userID, text); err != nil {
		slog.Warn("failed to send direct message",
			slog.Uint64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
