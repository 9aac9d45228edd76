package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danifischer/raidbot/internal/model"
)

// GuildChecker decides whether this bot instance serves a guild
type GuildChecker interface {
	Allowed(ctx context.Context, guildID uint64) bool
}

// GuildIDKey is the context key for guild ID
const GuildIDKey contextKey = "guildID"

// GetGuildID extracts the guild ID from context
func GetGuildID(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(GuildIDKey).(uint64)
	return id, ok
}

// GuildAccess scopes requests under /guilds/{guildId}. The ID must be numeric
// and accepted by checker; guilds this instance does not serve answer 404 so
// their existence is not leaked. Paths without a guild segment pass through.
func GuildAccess(checker GuildChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := extractGuildID(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			guildID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || guildID == 0 {
				model.NewBadRequestError("invalid guild ID").WriteJSON(w)
				return
			}

			if !checker.Allowed(r.Context(), guildID) {
				model.NewNotFoundError("guild").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), GuildIDKey, guildID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractGuildID returns the segment after "guilds". Expected formats:
// - /v1/guilds/{guildId}/raids
// - /v1/guilds/{guildId}/raids/{raidId}/users/{userId}
func extractGuildID(path string) (string, bool) {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "guilds" && i+1 < len(parts) {
			return parts[i+1], true
		}
	}
	return "", false
}

// GuildAllowlist accepts the listed guilds; an empty list accepts every guild
type GuildAllowlist struct {
	guilds map[uint64]struct{}
}

// NewGuildAllowlist parses decimal guild IDs. Entries that do not parse are
// skipped; configuration validation reports them.
func NewGuildAllowlist(ids []string) *GuildAllowlist {
	a := &GuildAllowlist{guilds: make(map[uint64]struct{}, len(ids))}
	for _, raw := range ids {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		a.guilds[id] = struct{}{}
	}
	return a
}

// Allowed implements GuildChecker
func (a *GuildAllowlist) Allowed(_ context.Context, guildID uint64) bool {
	if len(a.guilds) == 0 {
		return true
	}
	_, ok := a.guilds[guildID]
	return ok
}
