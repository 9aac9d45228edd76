package model

import "time"

// PendingConversation is an open private sign-up dialogue waiting for the
// user to pick a role and account
type PendingConversation struct {
	UserID       uint64       `json:"user_id"`
	GuildID      uint64       `json:"guild_id"`
	RaidID       string       `json:"raid_id"`
	Availability Availability `json:"availability"`
	Nickname     string       `json:"nickname,omitempty"`
	Username     string       `json:"username,omitempty"`
	OpenedOn     time.Time    `json:"opened_on"`
	ExpiresOn    time.Time    `json:"expires_on"`
}

// IsExpired reports whether the conversation has outlived its deadline
func (c *PendingConversation) IsExpired(now time.Time) bool {
	return !c.ExpiresOn.IsZero() && !now.Before(c.ExpiresOn)
}

// CompleteConversationRequest carries the user's answer to the sign-up prompt
type CompleteConversationRequest struct {
	Role        string `json:"role"`
	AccountName string `json:"account_name"`
}

// Validate checks the completion request
func (r *CompleteConversationRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Role == "" {
		errors = append(errors, FieldError{Field: "role", Message: "role is required"})
	}
	if r.AccountName == "" {
		errors = append(errors, FieldError{Field: "account_name", Message: "account_name is required"})
	} else if len(r.AccountName) > MaxAccountNameLength {
		errors = append(errors, FieldError{Field: "account_name", Message: "account name must be 128 characters or less"})
	}
	return errors
}
