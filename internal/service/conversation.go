package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danifischer/raidbot/internal/model"
)

// DefaultConversationTTL is how long a sign-up conversation waits for an answer
const DefaultConversationTTL = 15 * time.Minute

// ConversationServiceConfig holds dependencies for ConversationService
type ConversationServiceConfig struct {
	Roster   *RosterService
	Accounts AccountDirectory
	Platform Platform
	TTL      time.Duration
	Now      func() time.Time
	Recorder Recorder
}

// ConversationService tracks the private sign-up dialogue opened when an
// unregistered user reacts to a roster. One conversation per user; it ends
// when completed, cancelled, or expired.
type ConversationService struct {
	roster   *RosterService
	accounts AccountDirectory
	platform Platform
	ttl      time.Duration
	now      func() time.Time
	recorder Recorder

	mu      sync.Mutex
	pending map[uint64]*model.PendingConversation
}

// NewConversationService creates a new conversation service
func NewConversationService(cfg ConversationServiceConfig) *ConversationService {
	s := &ConversationService{
		roster:   cfg.Roster,
		accounts: cfg.Accounts,
		platform: cfg.Platform,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		recorder: cfg.Recorder,
		pending:  make(map[uint64]*model.PendingConversation),
	}
	if s.ttl <= 0 {
		s.ttl = DefaultConversationTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

// HasPendingConversation reports whether userID has an unexpired conversation
func (s *ConversationService) HasPendingConversation(userID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.pending[userID]
	return ok && !conv.IsExpired(s.now())
}

// OpenSignUpConversation records a pending conversation and prompts the user
// privately for a role and account. If the prompt cannot be delivered the
// conversation is dropped so the user can react again.
func (s *ConversationService) OpenSignUpConversation(ctx context.Context, ev model.ReactionEvent, raid *model.Raid, availability model.Availability) error {
	now := s.now()
	conv := &model.PendingConversation{
		UserID:       ev.UserID,
		GuildID:      ev.GuildID,
		RaidID:       raid.ID,
		Availability: availability,
		Nickname:     ev.Nickname,
		Username:     ev.Username,
		OpenedOn:     now,
		ExpiresOn:    now.Add(s.ttl),
	}

	s.mu.Lock()
	if existing, ok := s.pending[ev.UserID]; ok && !existing.IsExpired(now) {
		s.mu.Unlock()
		return ErrConversationPending
	}
	s.pending[ev.UserID] = conv
	open := len(s.pending)
	s.mu.Unlock()
	s.recorder.Conversations(open)

	accounts, err := s.accounts.ListAccounts(ctx, ev.GuildID, ev.UserID, raid.AccountType)
	if err != nil {
		s.drop(ev.UserID, conv)
		return fmt.Errorf("list accounts: %w", err)
	}

	if err := s.platform.SendDirectMessage(ctx, ev.UserID, signUpPrompt(raid, availability, accounts)); err != nil {
		s.drop(ev.UserID, conv)
		return fmt.Errorf("%w: %w", ErrPlatform, err)
	}

	slog.Info("sign-up conversation opened",
		slog.String("raid_id", raid.ID),
		slog.Uint64("user_id", ev.UserID),
		slog.String("availability", string(availability)),
	)
	return nil
}

// Get returns a copy of the user's pending conversation
func (s *ConversationService) Get(userID uint64) (*model.PendingConversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.pending[userID]
	if !ok || conv.IsExpired(s.now()) {
		return nil, ErrNoPendingConversation
	}
	c := *conv
	return &c, nil
}

// List returns copies of all unexpired conversations ordered by opening time
func (s *ConversationService) List() []*model.PendingConversation {
	s.mu.Lock()
	now := s.now()
	convs := make([]*model.PendingConversation, 0, len(s.pending))
	for _, conv := range s.pending {
		if conv.IsExpired(now) {
			continue
		}
		c := *conv
		convs = append(convs, &c)
	}
	s.mu.Unlock()

	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].OpenedOn.Equal(convs[j].OpenedOn) {
			return convs[i].OpenedOn.Before(convs[j].OpenedOn)
		}
		return convs[i].UserID < convs[j].UserID
	})
	return convs
}

// Complete finishes the user's conversation by signing them up with the
// chosen role and account. Roster rule rejections and a user left without
// linked accounts end the conversation; a storage failure keeps it open so the
// answer can be retried.
func (s *ConversationService) Complete(ctx context.Context, userID uint64, req *model.CompleteConversationRequest) (*RosterChange, error) {
	if err := newValidationError(req.Validate()); err != nil {
		return nil, err
	}
	conv, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	raid := s.roster.raidRepo.Get(conv.RaidID)
	if raid == nil {
		s.remove(userID)
		return nil, ErrRaidNotFound
	}

	accounts, err := s.accounts.ListAccounts(ctx, conv.GuildID, userID, raid.AccountType)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		// unlinked while the conversation was open
		s.remove(userID)
		s.notify(ctx, userID, fmt.Sprintf(NoAccountMessage, raid.AccountType))
		return nil, ErrAccountMissing
	}
	account, ok := matchAccount(accounts, req.AccountName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, req.AccountName)
	}

	change, err := s.roster.AddUser(ctx, conv.RaidID, LinkedCandidate{
		UserID:      userID,
		Nickname:    conv.Nickname,
		Username:    conv.Username,
		AccountName: account,
	}, req.Role, conv.Availability)
	if err != nil {
		if !errors.Is(err, ErrPersist) {
			s.remove(userID)
			s.notify(ctx, userID, "Sign-up failed: "+err.Error())
		}
		return nil, err
	}

	s.remove(userID)
	s.notify(ctx, userID, change.Message)
	return change, nil
}

// Cancel drops the user's conversation
func (s *ConversationService) Cancel(userID uint64) error {
	s.mu.Lock()
	_, ok := s.pending[userID]
	delete(s.pending, userID)
	open := len(s.pending)
	s.mu.Unlock()
	if !ok {
		return ErrNoPendingConversation
	}
	s.recorder.Conversations(open)
	return nil
}

// ExpireStale removes expired conversations and tells their users; it returns
// how many were removed
func (s *ConversationService) ExpireStale(ctx context.Context) int {
	now := s.now()
	s.mu.Lock()
	var expired []uint64
	for userID, conv := range s.pending {
		if conv.IsExpired(now) {
			expired = append(expired, userID)
			delete(s.pending, userID)
		}
	}
	open := len(s.pending)
	s.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	s.recorder.Conversations(open)
	for _, userID := range expired {
		s.notify(ctx, userID, "Your raid sign-up timed out. React again to start over.")
	}
	return len(expired)
}

func (s *ConversationService) remove(userID uint64) {
	s.mu.Lock()
	delete(s.pending, userID)
	open := len(s.pending)
	s.mu.Unlock()
	s.recorder.Conversations(open)
}

// drop removes conv only if it is still the user's current conversation
func (s *ConversationService) drop(userID uint64, conv *model.PendingConversation) {
	s.mu.Lock()
	if s.pending[userID] == conv {
		delete(s.pending, userID)
	}
	open := len(s.pending)
	s.mu.Unlock()
	s.recorder.Conversations(open)
}

func (s *ConversationService) notify(ctx context.Context, userID uint64, text string) {
	if s.platform == nil || text == "" {
		return
	}
	if err := s.platform.SendDirectMessage(ctx, userID, text); err != nil {
		slog.Warn("failed to send direct message",
			slog.Uint64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// matchAccount finds name among accounts, ignoring case
func matchAccount(accounts []string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, a := range accounts {
		if strings.EqualFold(a, name) {
			return a, true
		}
	}
	return "", false
}

func signUpPrompt(raid *model.Raid, availability model.Availability, accounts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Signing up for **%s** as %s.\n", raid.Title, availability)
	b.WriteString("Reply with a role and one of your accounts.\n\nRoles:\n")
	for _, role := range raid.Roles {
		fmt.Fprintf(&b, "- %s (%s)\n", role.Name, role.ID)
	}
	b.WriteString("\nAccounts:\n")
	for _, a := range accounts {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	return b.String()
}
