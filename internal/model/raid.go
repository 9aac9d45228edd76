package model

import (
	"strings"
	"time"
	"unicode"
)

// Availability is a roster entry's declared commitment level for a raid
type Availability string

// Availability constants
const (
	AvailabilityYes    Availability = "yes"
	AvailabilityMaybe  Availability = "maybe"
	AvailabilityBackup Availability = "backup"
	AvailabilityFlex   Availability = "flex"
)

// IsValid reports whether a is one of the known availability states
func (a Availability) IsValid() bool {
	switch a {
	case AvailabilityYes, AvailabilityMaybe, AvailabilityBackup, AvailabilityFlex:
		return true
	}
	return false
}

// ParseAvailability parses a case-insensitive availability name
func ParseAvailability(s string) (Availability, bool) {
	a := Availability(strings.ToLower(strings.TrimSpace(s)))
	return a, a.IsValid()
}

// PlaceholderUserIDLimit bounds the user IDs reserved for manually added,
// account-less roster entries. Real platform IDs are snowflakes far above it.
const PlaceholderUserIDLimit uint64 = 256

// Constraints
const (
	MaxRolesPerRaid      = 20
	MaxRoleNameLength    = 50
	MaxRoleCapacity      = 100
	MaxRaidTitleLength   = 200
	MaxRaidDescLength    = 2000
	MaxAccountTypeLength = 32
	MaxDisplayNameLength = 64
	MaxAccountNameLength = 128
)

// RaidRole is a named, capacity-bounded slot definition on a raid.
// ID is derived from Name at creation and never changes afterwards.
type RaidRole struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"` // maximum number of "yes" entries
}

// RosterEntry is one user's sign-up on a raid
type RosterEntry struct {
	UserID       uint64       `json:"user_id"`
	RoleID       string       `json:"role_id"`
	Availability Availability `json:"availability"`
	DisplayName  string       `json:"display_name"`
	AccountName  string       `json:"account_name,omitempty"`
}

// IsPlaceholder reports whether the entry was added by name without a platform account
func (e RosterEntry) IsPlaceholder() bool {
	return e.UserID < PlaceholderUserIDLimit
}

// Raid is a scheduled group event with a role roster and a flex pool
type Raid struct {
	ID          string                 `json:"id"`
	GuildID     uint64                 `json:"guild_id"`
	ChannelID   uint64                 `json:"channel_id"`
	MessageID   uint64                 `json:"message_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Organizer   string                 `json:"organizer,omitempty"`
	StartTime   time.Time              `json:"start_time"`
	AccountType string                 `json:"account_type"`
	Roles       []RaidRole             `json:"roles"`
	Users       map[uint64]RosterEntry `json:"users"`
	FlexRoles   []RosterEntry          `json:"flex_roles"`
	CreatedOn   time.Time              `json:"created_on"`
	UpdatedOn   time.Time              `json:"updated_on"`
}

// Role returns the role with the given ID
func (r *Raid) Role(roleID string) (RaidRole, bool) {
	for _, role := range r.Roles {
		if role.ID == roleID {
			return role, true
		}
	}
	return RaidRole{}, false
}

// CountInRole counts direct entries in roleID with the given availability,
// ignoring the entry owned by exclude.
func (r *Raid) CountInRole(roleID string, availability Availability, exclude uint64) int {
	count := 0
	for id, entry := range r.Users {
		if id == exclude {
			continue
		}
		if entry.RoleID == roleID && entry.Availability == availability {
			count++
		}
	}
	return count
}

// FlexEntry returns the flex pool entry for userID
func (r *Raid) FlexEntry(userID uint64) (RosterEntry, bool) {
	for _, entry := range r.FlexRoles {
		if entry.UserID == userID {
			return entry, true
		}
	}
	return RosterEntry{}, false
}

// RemoveFlex strips every flex entry owned by userID and reports how many were removed
func (r *Raid) RemoveFlex(userID uint64) int {
	kept := r.FlexRoles[:0]
	removed := 0
	for _, entry := range r.FlexRoles {
		if entry.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	r.FlexRoles = kept
	return removed
}

// HasUser reports whether userID holds a direct entry or a flex entry
func (r *Raid) HasUser(userID uint64) bool {
	if _, ok := r.Users[userID]; ok {
		return true
	}
	_, ok := r.FlexEntry(userID)
	return ok
}

// NextPlaceholderID returns the lowest placeholder ID not used by any entry
func (r *Raid) NextPlaceholderID() (uint64, bool) {
	for id := uint64(1); id < PlaceholderUserIDLimit; id++ {
		if !r.HasUser(id) {
			return id, true
		}
	}
	return 0, false
}

// Clone returns a deep copy of the raid
func (r *Raid) Clone() *Raid {
	if r == nil {
		return nil
	}
	c := *r
	c.Roles = append([]RaidRole(nil), r.Roles...)
	c.FlexRoles = append([]RosterEntry(nil), r.FlexRoles...)
	c.Users = make(map[uint64]RosterEntry, len(r.Users))
	for id, entry := range r.Users {
		c.Users[id] = entry
	}
	return &c
}

// MatchesMessage reports whether the raid is rendered at the given message coordinates
func (r *Raid) MatchesMessage(guildID, channelID, messageID uint64) bool {
	return r.GuildID == guildID && r.ChannelID == channelID && r.MessageID == messageID
}

// Validate checks the raid definition before it is registered
func (r *Raid) Validate() []FieldError {
	var errors []FieldError

	title := strings.TrimSpace(r.Title)
	if title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(title) > MaxRaidTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 200 characters or less"})
	}
	if len(r.Description) > MaxRaidDescLength {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 2000 characters or less"})
	}
	if strings.TrimSpace(r.AccountType) == "" {
		errors = append(errors, FieldError{Field: "account_type", Message: "account type is required"})
	} else if len(r.AccountType) > MaxAccountTypeLength {
		errors = append(errors, FieldError{Field: "account_type", Message: "account type must be 32 characters or less"})
	}

	if len(r.Roles) == 0 {
		errors = append(errors, FieldError{Field: "roles", Message: "at least one role is required"})
	}
	if len(r.Roles) > MaxRolesPerRaid {
		errors = append(errors, FieldError{Field: "roles", Message: "maximum 20 roles allowed"})
	}
	seen := make(map[string]bool, len(r.Roles))
	for _, role := range r.Roles {
		switch {
		case role.ID == "":
			errors = append(errors, FieldError{Field: "roles", Message: "role name is required"})
		case len(role.Name) > MaxRoleNameLength:
			errors = append(errors, FieldError{Field: "roles", Message: "role name must be 50 characters or less"})
		case seen[role.ID]:
			errors = append(errors, FieldError{Field: "roles", Message: "duplicate role " + role.Name})
		}
		seen[role.ID] = true
		if role.Capacity < 1 || role.Capacity > MaxRoleCapacity {
			errors = append(errors, FieldError{Field: "roles", Message: "role capacity must be between 1 and 100"})
		}
	}

	return errors
}

// NewRaidRole builds a role definition with its stable ID
func NewRaidRole(name string, capacity int) RaidRole {
	name = strings.TrimSpace(name)
	return RaidRole{ID: RoleSlug(name), Name: name, Capacity: capacity}
}

// RoleSlug turns a role name into its stable identifier.
// "Power DPS" and "power-dps" map to the same slug.
func RoleSlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// CreateRaidRoleRequest describes one role slot in a create request
type CreateRaidRoleRequest struct {
	Name     string `json:"name" yaml:"name"`
	Capacity int    `json:"capacity" yaml:"capacity"`
}

// CreateRaidRequest represents a request to register a raid under a rendered message
type CreateRaidRequest struct {
	ChannelID   uint64                  `json:"channel_id"`
	MessageID   uint64                  `json:"message_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	Organizer   string                  `json:"organizer,omitempty"`
	StartTime   time.Time               `json:"start_time"`
	AccountType string                  `json:"account_type,omitempty"`
	Template    string                  `json:"template,omitempty"` // named role template, used when Roles is empty
	Roles       []CreateRaidRoleRequest `json:"roles,omitempty"`
}

// Validate checks the request fields that are not covered by Raid.Validate
func (r *CreateRaidRequest) Validate() []FieldError {
	var errors []FieldError
	if r.ChannelID == 0 {
		errors = append(errors, FieldError{Field: "channel_id", Message: "channel_id is required"})
	}
	if r.MessageID == 0 {
		errors = append(errors, FieldError{Field: "message_id", Message: "message_id is required"})
	}
	if len(r.Roles) == 0 && r.Template == "" {
		errors = append(errors, FieldError{Field: "roles", Message: "roles or template is required"})
	}
	return errors
}

// UpdateRaidRequest replaces scheduling metadata on an existing raid
type UpdateRaidRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Organizer   *string    `json:"organizer,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	AccountType *string    `json:"account_type,omitempty"`
}

// AddUserRequest adds either a named placeholder (Name) or a linked platform user (UserID)
type AddUserRequest struct {
	Name         string `json:"name,omitempty"`
	UserID       uint64 `json:"user_id,omitempty"`
	Nickname     string `json:"nickname,omitempty"`
	Username     string `json:"username,omitempty"`
	AccountName  string `json:"account_name,omitempty"`
	Role         string `json:"role"`
	Availability string `json:"availability"`
}

// Validate checks the add-user request
func (r *AddUserRequest) Validate() []FieldError {
	var errors []FieldError
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "" && r.UserID == 0:
		errors = append(errors, FieldError{Field: "name", Message: "name or user_id is required"})
	case name != "" && r.UserID != 0:
		errors = append(errors, FieldError{Field: "name", Message: "name and user_id are mutually exclusive"})
	case len(name) > MaxDisplayNameLength:
		errors = append(errors, FieldError{Field: "name", Message: "name must be 64 characters or less"})
	}
	if r.UserID != 0 && r.UserID < PlaceholderUserIDLimit {
		errors = append(errors, FieldError{Field: "user_id", Message: "user_id is in the reserved placeholder range"})
	}
	if len(r.AccountName) > MaxAccountNameLength {
		errors = append(errors, FieldError{Field: "account_name", Message: "account name must be 128 characters or less"})
	}
	if strings.TrimSpace(r.Role) == "" {
		errors = append(errors, FieldError{Field: "role", Message: "role is required"})
	}
	if _, ok := ParseAvailability(r.Availability); !ok {
		errors = append(errors, FieldError{Field: "availability", Message: "availability must be yes, maybe, backup or flex"})
	}
	return errors
}

// ChangeAvailabilityRequest moves an existing entry to another availability
type ChangeAvailabilityRequest struct {
	Availability string `json:"availability"`
}

// RemovalResult reports the outcome of a roster removal
type RemovalResult struct {
	Message string `json:"message"`
}
