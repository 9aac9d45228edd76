package gateway

import (
	"context"
	"log/slog"

	"github.com/danifischer/raidbot/internal/model"
)

// Sender writes one outbound frame to the platform relay
type Sender interface {
	Send(ctx context.Context, op string, payload any) error
}

// Relay implements service.Platform by translating roster side effects into
// gateway frames
type Relay struct {
	sender  Sender
	symbols model.ReactionSymbols
}

// NewRelay creates a relay that writes through sender
func NewRelay(sender Sender, symbols model.ReactionSymbols) *Relay {
	if symbols == (model.ReactionSymbols{}) {
		symbols = model.DefaultReactionSymbols()
	}
	return &Relay{sender: sender, symbols: symbols}
}

// RenderRoster replaces the roster message body
func (r *Relay) RenderRoster(ctx context.Context, raid *model.Raid) error {
	return r.sender.Send(ctx, OpRenderRoster, RenderRosterPayload{
		RaidID:    raid.ID,
		GuildID:   raid.GuildID,
		ChannelID: raid.ChannelID,
		MessageID: raid.MessageID,
		Title:     raid.Title,
		StartTime: raid.StartTime,
		Content:   RosterText(raid, r.symbols),
		Markers:   r.symbols.All(),
	})
}

// RemoveReaction clears a user's marker from a roster message
func (r *Relay) RemoveReaction(ctx context.Context, channelID, messageID, userID uint64, emoji string) error {
	return r.sender.Send(ctx, OpRemoveReaction, RemoveReactionPayload{
		ChannelID: channelID,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	})
}

// SendDirectMessage messages a user privately
func (r *Relay) SendDirectMessage(ctx context.Context, userID uint64, text string) error {
	return r.sender.Send(ctx, OpSendDM, SendDMPayload{UserID: userID, Content: text})
}

// DeleteMessage removes a roster message
func (r *Relay) DeleteMessage(ctx context.Context, channelID, messageID uint64) error {
	return r.sender.Send(ctx, OpDeleteMessage, DeleteMessagePayload{ChannelID: channelID, MessageID: messageID})
}

// LogSender writes outbound frames to the log; it stands in for the relay
// connection when the gateway is disabled
type LogSender struct{}

// Send logs the frame
func (LogSender) Send(_ context.Context, op string, payload any) error {
	slog.Info("gateway disabled, frame not sent", slog.String("op", op), slog.Any("payload", payload))
	return nil
}
