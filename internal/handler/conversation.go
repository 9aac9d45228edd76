package handler

import (
	"net/http"

	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/service"
)

// ConversationHandler exposes the private sign-up dialogue so the relay can
// forward the user's answers
type ConversationHandler struct {
	conversations *service.ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// RegisterRoutes registers conversation routes
func (h *ConversationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/conversations", h.List)
	mux.HandleFunc("GET /v1/conversations/{userId}", h.Get)
	mux.HandleFunc("POST /v1/conversations/{userId}/complete", h.Complete)
	mux.HandleFunc("DELETE /v1/conversations/{userId}", h.Cancel)
}

// List handles GET /v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs := h.conversations.List()
	WriteCollection(w, http.StatusOK, convs, len(convs), nil)
}

// Get handles GET /v1/conversations/{userId}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(r, "userId")
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid user ID"))
		return
	}

	conv, err := h.conversations.Get(userID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, conv, nil)
}

// Complete handles POST /v1/conversations/{userId}/complete - the user's
// role and account choice
func (h *ConversationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(r, "userId")
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid user ID"))
		return
	}

	var req model.CompleteConversationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	change, err := h.conversations.Complete(r.Context(), userID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "complete sign-up"))
		return
	}

	WriteData(w, http.StatusOK, change, nil)
}

// Cancel handles DELETE /v1/conversations/{userId}
func (h *ConversationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(r, "userId")
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid user ID"))
		return
	}

	if err := h.conversations.Cancel(userID); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteNoContent(w)
}
