// Package middleware provides HTTP middleware for the raidbot API.
//
// # Available Middleware
//
//   - RequestID: propagates or generates X-Request-ID
//   - Logger: structured request logging via slog
//   - Recovery: turns panics into a problem+json 500
//   - Compress: gzip response compression
//   - GuildAccess: parses /guilds/{guildId} and checks it against a GuildChecker
//   - RateLimit: token bucket per client, and per guild once scoped
//
// # Context Values
//
//   - GetRequestID(ctx): unique request identifier
//   - GetGuildID(ctx): guild ID from the path, set by GuildAccess
//
// GuildAccess must run before RateLimit for guild-keyed buckets.
package middleware
