package model

// ReactionEvent is a user toggling a marker on a raid's roster message.
// Nickname and Username are optional and only used to name new sign-ups.
type ReactionEvent struct {
	Emoji     string `json:"emoji"`
	UserID    uint64 `json:"user_id"`
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	MessageID uint64 `json:"message_id"`
	Nickname  string `json:"nickname,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Validate checks that the event carries the coordinates needed to find a raid
func (e *ReactionEvent) Validate() []FieldError {
	var errors []FieldError
	if e.Emoji == "" {
		errors = append(errors, FieldError{Field: "emoji", Message: "emoji is required"})
	}
	if e.UserID == 0 {
		errors = append(errors, FieldError{Field: "user_id", Message: "user_id is required"})
	}
	if e.GuildID == 0 || e.ChannelID == 0 || e.MessageID == 0 {
		errors = append(errors, FieldError{Field: "message", Message: "guild_id, channel_id and message_id are required"})
	}
	return errors
}

// ReactionIntent is what a reaction marker asks the roster to do
type ReactionIntent string

// ReactionIntent constants
const (
	IntentNone    ReactionIntent = ""
	IntentSignOn  ReactionIntent = "sign_on"
	IntentUnsure  ReactionIntent = "unsure"
	IntentBackup  ReactionIntent = "backup"
	IntentFlex    ReactionIntent = "flex"
	IntentSignOff ReactionIntent = "sign_off"
)

// Availability returns the availability requested by the intent, if any
func (i ReactionIntent) Availability() (Availability, bool) {
	switch i {
	case IntentSignOn:
		return AvailabilityYes, true
	case IntentUnsure:
		return AvailabilityMaybe, true
	case IntentBackup:
		return AvailabilityBackup, true
	case IntentFlex:
		return AvailabilityFlex, true
	}
	return "", false
}

// ReactionSymbols maps the markers rendered under a roster message to intents
type ReactionSymbols struct {
	SignOn  string `yaml:"sign_on"`
	Unsure  string `yaml:"unsure"`
	Backup  string `yaml:"backup"`
	Flex    string `yaml:"flex"`
	SignOff string `yaml:"sign_off"`
}

// DefaultReactionSymbols returns the stock marker set
func DefaultReactionSymbols() ReactionSymbols {
	return ReactionSymbols{
		SignOn:  "✅",
		Unsure:  "❓",
		Backup:  "💤",
		Flex:    "💪",
		SignOff: "❌",
	}
}

// Intent resolves a marker to its intent. Unknown markers resolve to IntentNone.
func (s ReactionSymbols) Intent(emoji string) ReactionIntent {
	switch emoji {
	case "":
		return IntentNone
	case s.SignOff:
		return IntentSignOff
	case s.SignOn:
		return IntentSignOn
	case s.Unsure:
		return IntentUnsure
	case s.Backup:
		return IntentBackup
	case s.Flex:
		return IntentFlex
	}
	return IntentNone
}

// All returns the markers in display order
func (s ReactionSymbols) All() []string {
	return []string{s.SignOn, s.Unsure, s.Backup, s.Flex, s.SignOff}
}

// ReactionOutcome describes what reconciling one reaction event did
type ReactionOutcome string

// ReactionOutcome constants
const (
	OutcomeIgnored             ReactionOutcome = "ignored"
	OutcomeSignedOff           ReactionOutcome = "signed_off"
	OutcomeAccountMissing      ReactionOutcome = "account_missing"
	OutcomeConversationOpened  ReactionOutcome = "conversation_opened"
	OutcomeConversationPending ReactionOutcome = "conversation_pending"
	OutcomeAvailabilityChanged ReactionOutcome = "availability_changed"
	OutcomeUnchanged           ReactionOutcome = "unchanged"
)

// ReactionResult is returned to callers that post reaction events over HTTP
type ReactionResult struct {
	RaidID  string          `json:"raid_id,omitempty"`
	Outcome ReactionOutcome `json:"outcome"`
}
