package handler

import (
	"net/http"

	"github.com/danifischer/raidbot/internal/middleware"
	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/service"
)

// ReactionHandler accepts reaction events posted by a platform relay that
// cannot hold a gateway connection
type ReactionHandler struct {
	reactions *service.ReactionService
	guilds    middleware.GuildChecker
}

// NewReactionHandler creates a new reaction handler. guilds may be nil to
// accept events from every guild.
func NewReactionHandler(reactions *service.ReactionService, guilds middleware.GuildChecker) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, guilds: guilds}
}

// RegisterRoutes registers reaction routes
func (h *ReactionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/reactions", h.Handle)
}

// Handle handles POST /v1/reactions
func (h *ReactionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var ev model.ReactionEvent
	if err := DecodeJSON(r, &ev); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if fieldErrors := ev.Validate(); len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}
	if h.guilds != nil && !h.guilds.Allowed(r.Context(), ev.GuildID) {
		WriteData(w, http.StatusOK, model.ReactionResult{Outcome: model.OutcomeIgnored}, nil)
		return
	}

	result, err := h.reactions.HandleReaction(r.Context(), ev)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "handle reaction"))
		return
	}

	WriteData(w, http.StatusOK, result, nil)
}
