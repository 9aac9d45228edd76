package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danifischer/raidbot/internal/model"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Lookup Errors =====
var (
	ErrRaidNotFound     = errors.New("raid not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrTemplateNotFound = errors.New("raid template not found")
)

// ===== Roster Rule Errors =====
var (
	ErrRoleFull            = errors.New("role is full")
	ErrCrossRoleConflict   = errors.New("already signed up for a different role, sign off first")
	ErrAccountMissing      = errors.New("no linked account of the required type")
	ErrUnknownAccount      = errors.New("account is not linked to this user")
	ErrNoPlaceholderSlot   = errors.New("no free placeholder slot on this raid")
	ErrInvalidAvailability = errors.New("availability cannot be changed to flex, sign up through the flex pool")
)

// ===== Raid Errors =====
var (
	ErrRaidExists = errors.New("a raid is already registered for this message")
)

// ===== Conversation Errors =====
var (
	ErrNoPendingConversation = errors.New("no pending sign-up conversation")
	ErrConversationPending   = errors.New("a sign-up conversation is already pending")
)

// ===== Infrastructure Errors =====
var (
	ErrPersist  = errors.New("roster change could not be saved")
	ErrPlatform = errors.New("chat platform call failed")
)

// ValidationError carries field-level problems with a request
type ValidationError struct {
	Errors []model.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(errs []model.FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// IsRosterRule reports whether err is a roster rule rejection that should be
// shown to the user rather than logged as a failure
func IsRosterRule(err error) bool {
	return errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrRoleFull) ||
		errors.Is(err, ErrCrossRoleConflict) ||
		errors.Is(err, ErrAccountMissing) ||
		errors.Is(err, ErrUnknownAccount) ||
		errors.Is(err, ErrNoPlaceholderSlot) ||
		errors.Is(err, ErrInvalidAvailability) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRaidNotFound)
}
