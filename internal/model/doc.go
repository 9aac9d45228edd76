// Package model defines the raid roster entities and the request/response
// types shared by every layer of raidbot.
//
// # Domain Entities
//
//   - Raid: a scheduled group event bound to one rendered message, identified
//     by (guild, channel, message) as well as by its generated ID
//   - RaidRole: a named slot definition with a "yes" capacity. Its ID is a
//     slug derived from the name once, at creation
//   - RosterEntry: one user's sign-up (role, availability, names)
//   - PendingConversation: a private sign-up dialogue awaiting the user's answer
//
// A raid keeps direct sign-ups in Users (keyed by user ID) and flex sign-ups
// in FlexRoles. A user is never in both. User IDs below
// PlaceholderUserIDLimit belong to entries added by name without a platform
// account.
//
// # Availability
//
//	yes | maybe | backup   direct sign-up for one role
//	flex                   overflow pool, no capacity
//
// Only "yes" entries count against a role's capacity.
//
// # Reactions
//
// ReactionSymbols maps the markers under a roster message to a ReactionIntent.
// The symbol set is configurable; DefaultReactionSymbols returns the stock set.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go:
//
//	type ProblemDetails struct {
//	    Type    string    `json:"type"`
//	    Title   string    `json:"title"`
//	    Status  int       `json:"status"`
//	    Detail  string    `json:"detail"`
//	}
package model
