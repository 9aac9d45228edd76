// Package service implements the roster engine for raidbot.
//
// The service package holds all roster rules: role arbitration, the
// availability state machine, reaction reconciliation and the private
// sign-up conversation. Services are the only writers of raid state; HTTP
// handlers and the gateway call into them.
//
// # Service Pattern
//
// All services follow a consistent pattern:
//
//   - Constructor function (NewXxxService) accepts a config struct with its dependencies
//   - Collaborators outside the engine (chat platform, account directory) are interfaces
//   - Errors are returned as sentinel errors or wrapped errors for context
//   - Context is passed through for cancellation and request-scoped values
//
// # Atomicity
//
// Arbitration and the mutation it guards run inside one
// RaidRepositoryInterface.Mutate call. The repository holds its write lock
// across check, change and snapshot write, so two sign-ups for the last slot
// of a role cannot both succeed, and a failed write leaves no trace in memory.
//
// Re-rendering the roster message and clearing the triggering reaction happen
// after the change is committed and are best-effort.
//
// # Error Handling
//
// Services return domain-specific errors defined in errors.go:
//
//	var (
//	    ErrRaidNotFound = errors.New("raid not found")
//	    ErrUserNotFound = errors.New("user not found")
//	)
//
// # Example Usage
//
//	roster := NewRosterService(RosterServiceConfig{
//	    RaidRepo: raidRepository,
//	    Accounts: accountDirectory,
//	    Platform: relay,
//	})
//	change, err := roster.AddUser(ctx, raidID, PlaceholderCandidate{Name: "Pug"}, "tank", model.AvailabilityMaybe)
package service
