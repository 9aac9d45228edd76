package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame ops exchanged with the platform relay
const (
	// OpIdentify is sent by the bot right after connecting
	OpIdentify = "identify"
	// OpReactionAdd carries a model.ReactionEvent from the relay
	OpReactionAdd = "reaction_add"

	OpRenderRoster   = "render_roster"
	OpRemoveReaction = "remove_reaction"
	OpSendDM         = "send_dm"
	OpDeleteMessage  = "delete_message"
)

// Frame is the envelope of every websocket message: {"op": "...", "d": {...}}
type Frame struct {
	Op string          `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
}

// NewFrame encodes payload into a frame for op
func NewFrame(op string, payload any) ([]byte, error) {
	d, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op, err)
	}
	return json.Marshal(Frame{Op: op, D: d})
}

// IdentifyPayload authenticates the bot and tells the relay which markers to
// put under roster messages
type IdentifyPayload struct {
	Token   string   `json:"token,omitempty"`
	Markers []string `json:"markers"`
}

// RenderRosterPayload asks the relay to replace the content of a roster message
type RenderRosterPayload struct {
	RaidID    string    `json:"raid_id"`
	GuildID   uint64    `json:"guild_id"`
	ChannelID uint64    `json:"channel_id"`
	MessageID uint64    `json:"message_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Content   string    `json:"content"`
	Markers   []string  `json:"markers"`
}

// RemoveReactionPayload asks the relay to clear one user's marker
type RemoveReactionPayload struct {
	ChannelID uint64 `json:"channel_id"`
	MessageID uint64 `json:"message_id"`
	UserID    uint64 `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// SendDMPayload asks the relay to message a user privately
type SendDMPayload struct {
	UserID  uint64 `json:"user_id"`
	Content string `json:"content"`
}

// DeleteMessagePayload asks the relay to delete a roster message
type DeleteMessagePayload struct {
	ChannelID uint64 `json:"channel_id"`
	MessageID uint64 `json:"message_id"`
}
