package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/danifischer/raidbot/internal/database"
	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/repository"
)

// Candidate is the identity being signed up: a named placeholder without a
// platform account, or a linked platform user
type Candidate interface {
	isCandidate()
}

// PlaceholderCandidate is added by name; the raid assigns it the next free placeholder ID
type PlaceholderCandidate struct {
	Name string
}

// LinkedCandidate is a platform user signing up with one of their linked accounts
type LinkedCandidate struct {
	UserID      uint64
	Nickname    string // platform nickname, may be empty
	Username    string
	AccountName string
}

func (PlaceholderCandidate) isCandidate() {}
func (LinkedCandidate) isCandidate()      {}

// RosterChange is the result of a successful roster mutation
type RosterChange struct {
	Raid    *model.Raid `json:"raid"`
	Message string      `json:"message"`
}

// MsgAddedToRoster is reported for every successful sign-up
const MsgAddedToRoster = "Added to raid roster"

// RosterServiceConfig holds dependencies for RosterService
type RosterServiceConfig struct {
	RaidRepo           RaidRepositoryInterface
	Accounts           AccountDirectory
	Platform           Platform
	Templates          map[string][]model.CreateRaidRoleRequest
	DefaultAccountType string
	Recorder           Recorder
}

// RosterService is the roster engine: every change to a raid's roster goes
// through it. Arbitration and the mutation it guards run inside a single
// repository Mutate call, so two concurrent sign-ups cannot both take the
// last slot.
type RosterService struct {
	raidRepo           RaidRepositoryInterface
	accounts           AccountDirectory
	platform           Platform
	templates          map[string][]model.CreateRaidRoleRequest
	defaultAccountType string
	recorder           Recorder
}

// NewRosterService creates a new roster service
func NewRosterService(cfg RosterServiceConfig) *RosterService {
	s := &RosterService{
		raidRepo:           cfg.RaidRepo,
		accounts:           cfg.Accounts,
		platform:           cfg.Platform,
		templates:          make(map[string][]model.CreateRaidRoleRequest, len(cfg.Templates)),
		defaultAccountType: cfg.DefaultAccountType,
		recorder:           cfg.Recorder,
	}
	for name, roles := range cfg.Templates {
		s.templates[strings.ToLower(name)] = roles
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

// ListRaids returns the raids that belong to guildID
func (s *RosterService) ListRaids(guildID uint64) []*model.Raid {
	return s.raidRepo.ListByGuild(guildID)
}

// AllRaids returns every raid held by the store
func (s *RosterService) AllRaids() []*model.Raid {
	return s.raidRepo.List()
}

// GetRaid returns the raid if it belongs to guildID
func (s *RosterService) GetRaid(guildID uint64, raidID string) (*model.Raid, error) {
	raid := s.raidRepo.Get(raidID)
	if raid == nil || raid.GuildID != guildID {
		return nil, ErrRaidNotFound
	}
	return raid, nil
}

// FindByMessage resolves a raid from the message it is rendered on
func (s *RosterService) FindByMessage(guildID, channelID, messageID uint64) *model.Raid {
	return s.raidRepo.FindByMessage(guildID, channelID, messageID)
}

// CreateRaid registers a raid for an already rendered message
func (s *RosterService) CreateRaid(ctx context.Context, guildID uint64, req *model.CreateRaidRequest) (*model.Raid, error) {
	if err := newValidationError(req.Validate()); err != nil {
		return nil, err
	}

	roleDefs := req.Roles
	if len(roleDefs) == 0 {
		var ok bool
		roleDefs, ok = s.templates[strings.ToLower(req.Template)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, req.Template)
		}
	}

	accountType := strings.TrimSpace(req.AccountType)
	if accountType == "" {
		accountType = s.defaultAccountType
	}

	raid := &model.Raid{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Organizer:   req.Organizer,
		StartTime:   req.StartTime,
		AccountType: accountType,
		Roles:       make([]model.RaidRole, 0, len(roleDefs)),
		Users:       make(map[uint64]model.RosterEntry),
	}
	for _, def := range roleDefs {
		raid.Roles = append(raid.Roles, model.NewRaidRole(def.Name, def.Capacity))
	}
	if err := newValidationError(raid.Validate()); err != nil {
		return nil, err
	}

	created, err := s.raidRepo.Create(ctx, raid, guildID, req.ChannelID, req.MessageID)
	s.recorder.RosterMutation("create_raid", err)
	if err != nil {
		return nil, s.storeErr(err)
	}

	slog.Info("raid created",
		slog.String("raid_id", created.ID),
		slog.Uint64("guild_id", guildID),
		slog.Int("roles", len(created.Roles)),
	)
	s.render(ctx, created)
	return created, nil
}

// UpdateRaid replaces scheduling metadata; roles and roster are left alone
func (s *RosterService) UpdateRaid(ctx context.Context, guildID uint64, raidID string, req *model.UpdateRaidRequest) (*model.Raid, error) {
	raid, err := s.raidRepo.Mutate(ctx, raidID, func(raid *model.Raid) error {
		if raid.GuildID != guildID {
			return ErrRaidNotFound
		}
		if req.Title != nil {
			raid.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			raid.Description = *req.Description
		}
		if req.Organizer != nil {
			raid.Organizer = *req.Organizer
		}
		if req.StartTime != nil {
			raid.StartTime = *req.StartTime
		}
		if req.AccountType != nil {
			raid.AccountType = strings.TrimSpace(*req.AccountType)
		}
		return newValidationError(raid.Validate())
	})
	s.recorder.RosterMutation("update_raid", err)
	if err != nil {
		return nil, s.storeErr(err)
	}
	s.render(ctx, raid)
	return raid, nil
}

// RemoveRaid deletes the rendered message and then the raid. A failed message
// delete is logged and does not keep the raid alive.
func (s *RosterService) RemoveRaid(ctx context.Context, guildID uint64, raidID string) error {
	raid, err := s.GetRaid(guildID, raidID)
	if err != nil {
		return err
	}

	if s.platform != nil {
		if err := s.platform.DeleteMessage(ctx, raid.ChannelID, raid.MessageID); err != nil {
			slog.Warn("failed to delete roster message",
				slog.String("raid_id", raid.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	_, err = s.raidRepo.Remove(ctx, raid.ID)
	s.recorder.RosterMutation("remove_raid", err)
	if err != nil {
		return s.storeErr(err)
	}
	slog.Info("raid removed", slog.String("raid_id", raid.ID), slog.Uint64("guild_id", guildID))
	return nil
}

// AddUser signs a candidate up for role with the given availability.
// Flex sign-ups go to the flex pool without a capacity check; all others
// are inserted into the raid's users after arbitration.
func (s *RosterService) AddUser(ctx context.Context, raidID string, candidate Candidate, role string, availability model.Availability) (*RosterChange, error) {
	if !availability.IsValid() {
		return nil, newValidationError([]model.FieldError{{Field: "availability", Message: "unknown availability"}})
	}
	roleID := model.RoleSlug(role)

	var entryFor func(raid *model.Raid) (model.RosterEntry, error)
	switch c := candidate.(type) {
	case PlaceholderCandidate:
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, newValidationError([]model.FieldError{{Field: "name", Message: "name is required"}})
		}
		entryFor = func(raid *model.Raid) (model.RosterEntry, error) {
			id, ok := raid.NextPlaceholderID()
			if !ok {
				return model.RosterEntry{}, ErrNoPlaceholderSlot
			}
			return model.RosterEntry{UserID: id, DisplayName: name, AccountName: name}, nil
		}
	case LinkedCandidate:
		raid := s.raidRepo.Get(raidID)
		if raid == nil {
			return nil, ErrRaidNotFound
		}
		displayName := s.resolveDisplayName(ctx, raid.GuildID, c)
		entryFor = func(*model.Raid) (model.RosterEntry, error) {
			return model.RosterEntry{UserID: c.UserID, DisplayName: displayName, AccountName: c.AccountName}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported candidate %T", candidate)
	}

	raid, err := s.raidRepo.Mutate(ctx, raidID, func(raid *model.Raid) error {
		entry, err := entryFor(raid)
		if err != nil {
			return err
		}
		entry.RoleID = roleID
		entry.Availability = availability
		if err := checkRoleAvailability(raid, entry.UserID, roleID, availability); err != nil {
			return err
		}
		if availability == model.AvailabilityFlex {
			raid.RemoveFlex(entry.UserID)
			raid.FlexRoles = append(raid.FlexRoles, entry)
		} else {
			raid.Users[entry.UserID] = entry
		}
		return nil
	})
	s.recorder.RosterMutation("add_user", err)
	if err != nil {
		return nil, s.storeErr(err)
	}

	s.render(ctx, raid)
	return &RosterChange{Raid: raid, Message: MsgAddedToRoster}, nil
}

// resolveDisplayName prefers the configured nickname, then the platform
// nickname, then the username
func (s *RosterService) resolveDisplayName(ctx context.Context, guildID uint64, c LinkedCandidate) string {
	if s.accounts != nil {
		name, err := s.accounts.DisplayName(ctx, guildID, c.UserID)
		if err != nil {
			slog.Warn("failed to resolve display name",
				slog.Uint64("user_id", c.UserID),
				slog.String("error", err.Error()),
			)
		}
		if name != "" {
			return name
		}
	}
	if c.Nickname != "" {
		return c.Nickname
	}
	if c.Username != "" {
		return c.Username
	}
	return strconv.FormatUint(c.UserID, 10)
}

// RemoveUser removes the user's direct entry and every flex entry they hold
func (s *RosterService) RemoveUser(ctx context.Context, raidID string, userID uint64) (*RosterChange, error) {
	var name string
	raid, err := s.raidRepo.Mutate(ctx, raidID, func(raid *model.Raid) error {
		var ok bool
		name, ok = removeFromRaid(raid, userID)
		if !ok {
			return ErrUserNotFound
		}
		return nil
	})
	s.recorder.RosterMutation("remove_user", err)
	if err != nil {
		return nil, s.storeErr(err)
	}

	s.render(ctx, raid)
	return &RosterChange{
		Raid:    raid,
		Message: fmt.Sprintf("Successfully removed %s from raid %s", name, raid.ID),
	}, nil
}

// RemoveUserByName removes a placeholder entry by its exact display name.
// Names that match no placeholder, or more than one, are reported as not found.
func (s *RosterService) RemoveUserByName(ctx context.Context, raidID, displayName string) (*RosterChange, error) {
	var name string
	raid, err := s.raidRepo.Mutate(ctx, raidID, func(raid *model.Raid) error {
		matches := make(map[uint64]bool)
		for id, entry := range raid.Users {
			if entry.IsPlaceholder() && entry.DisplayName == displayName {
				matches[id] = true
			}
		}
		for _, entry := range raid.FlexRoles {
			if entry.IsPlaceholder() && entry.DisplayName == displayName {
				matches[entry.UserID] = true
			}
		}
		if len(matches) != 1 {
			return ErrUserNotFound
		}
		for id := range matches {
			name, _ = removeFromRaid(raid, id)
		}
		return nil
	})
	s.recorder.RosterMutation("remove_user", err)
	if err != nil {
		return nil, s.storeErr(err)
	}

	s.render(ctx, raid)
	return &RosterChange{
		Raid:    raid,
		Message: fmt.Sprintf("Successfully removed %s from raid %s", name, raid.ID),
	}, nil
}

// RemoveUserFromAllRaids purges the user from every raid in one snapshot write
// and returns the IDs of the raids that changed
func (s *RosterService) RemoveUserFromAllRaids(ctx context.Context, userID uint64) ([]string, error) {
	changed, err := s.raidRepo.MutateAll(ctx, func(raid *model.Raid) (bool, error) {
		_, ok := removeFromRaid(raid, userID)
		return ok, nil
	})
	s.recorder.RosterMutation("remove_user_all", err)
	if err != nil {
		return nil, s.storeErr(err)
	}

	for _, id := range changed {
		if raid := s.raidRepo.Get(id); raid != nil {
			s.render(ctx, raid)
		}
	}
	if len(changed) > 0 {
		slog.Info("user removed from raids",
			slog.Uint64("user_id", userID),
			slog.Int("raids", len(changed)),
		)
	}
	return changed, nil
}

// ChangeAvailability moves an existing direct entry to another availability
// within its role. Upgrading to yes requires a free yes slot; the result's
// Message is empty when nothing changed.
func (s *RosterService) ChangeAvailability(ctx context.Context, raidID string, userID uint64, availability model.Availability) (*RosterChange, error) {
	if availability == model.AvailabilityFlex {
		return nil, ErrInvalidAvailability
	}
	if !availability.IsValid() {
		return nil, newValidationError([]model.FieldError{{Field: "availability", Message: "unknown availability"}})
	}

	unchanged := false
	raid, err := s.raidRepo.Mutate(ctx, raidID, func(raid *model.Raid) error {
		entry, ok := raid.Users[userID]
		if !ok {
			return ErrUserNotFound
		}
		if entry.Availability == availability {
			unchanged = true
			return errUnchanged
		}
		if availability == model.AvailabilityYes && !isAvailabilityChangeAllowed(raid, userID, availability) {
			return fmt.Errorf("%w: %s", ErrRoleFull, entry.RoleID)
		}
		entry.Availability = availability
		raid.Users[userID] = entry
		return nil
	})
	if unchanged {
		return &RosterChange{Raid: s.raidRepo.Get(raidID)}, nil
	}
	s.recorder.RosterMutation("change_availability", err)
	if err != nil {
		return nil, s.storeErr(err)
	}

	s.render(ctx, raid)
	return &RosterChange{Raid: raid, Message: "Availability changed to " + string(availability)}, nil
}

// errUnchanged aborts a Mutate call that would not change anything
var errUnchanged = errors.New("unchanged")

// checkRoleAvailability decides whether userID may hold roleID with the given
// availability. It never mutates the raid.
func checkRoleAvailability(raid *model.Raid, userID uint64, roleID string, availability model.Availability) error {
	role, ok := raid.Role(roleID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, roleID)
	}

	if existing, ok := raid.Users[userID]; ok {
		if availability == model.AvailabilityFlex || existing.RoleID != roleID {
			return fmt.Errorf("%w (signed up as %s)", ErrCrossRoleConflict, existing.RoleID)
		}
	}
	if _, ok := raid.FlexEntry(userID); ok && availability != model.AvailabilityFlex {
		return fmt.Errorf("%w (signed up for the flex pool)", ErrCrossRoleConflict)
	}

	if availability == model.AvailabilityYes && raid.CountInRole(roleID, model.AvailabilityYes, userID) >= role.Capacity {
		return fmt.Errorf("%w: %s", ErrRoleFull, role.Name)
	}
	return nil
}

// isAvailabilityChangeAllowed re-checks capacity before an existing entry is
// moved to availability
func isAvailabilityChangeAllowed(raid *model.Raid, userID uint64, availability model.Availability) bool {
	entry, ok := raid.Users[userID]
	if !ok {
		return false
	}
	if availability != model.AvailabilityYes {
		return true
	}
	role, ok := raid.Role(entry.RoleID)
	if !ok {
		return false
	}
	return raid.CountInRole(entry.RoleID, model.AvailabilityYes, userID) < role.Capacity
}

// removeFromRaid strips userID from users and the flex pool, returning the
// removed display name
func removeFromRaid(raid *model.Raid, userID uint64) (string, bool) {
	name := ""
	found := false
	if entry, ok := raid.Users[userID]; ok {
		name = entry.DisplayName
		found = true
		delete(raid.Users, userID)
	}
	if entry, ok := raid.FlexEntry(userID); ok {
		if name == "" {
			name = entry.DisplayName
		}
		found = true
	}
	raid.RemoveFlex(userID)
	return name, found
}

// render re-renders the roster message; failures are logged, never returned
func (s *RosterService) render(ctx context.Context, raid *model.Raid) {
	if s.platform == nil || raid == nil {
		return
	}
	if err := s.platform.RenderRoster(ctx, raid); err != nil {
		slog.Warn("failed to render roster",
			slog.String("raid_id", raid.ID),
			slog.String("error", err.Error()),
		)
	}
}

// storeErr maps repository errors onto service errors
func (s *RosterService) storeErr(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrRaidNotFound
	case errors.Is(err, database.ErrDuplicate):
		return ErrRaidExists
	case errors.Is(err, repository.ErrSnapshotSave):
		slog.Error("roster change rolled back", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return err
}
