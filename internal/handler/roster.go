package handler

import (
	"net/http"
	"strings"

	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/service"
)

// RosterHandler handles manual roster edits
type RosterHandler struct {
	roster *service.RosterService
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(roster *service.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// RegisterRoutes registers roster routes
func (h *RosterHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/guilds/{guildId}/raids/{raidId}/users", h.AddUser)
	mux.HandleFunc("PATCH /v1/guilds/{guildId}/raids/{raidId}/users/{userId}", h.ChangeAvailability)
	mux.HandleFunc("DELETE /v1/guilds/{guildId}/raids/{raidId}/users/{userId}", h.RemoveUser)
	mux.HandleFunc("DELETE /v1/guilds/{guildId}/raids/{raidId}/placeholders/{name}", h.RemovePlaceholder)
	mux.HandleFunc("DELETE /v1/users/{userId}/raids", h.RemoveFromAllRaids)
}

// scopedRaid resolves {raidId} within the request's guild; raids of other
// guilds are reported as missing
func (h *RosterHandler) scopedRaid(w http.ResponseWriter, r *http.Request) (*model.Raid, bool) {
	guild, ok := guildID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid guild ID"))
		return nil, false
	}
	raid, err := h.roster.GetRaid(guild, r.PathValue("raidId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return nil, false
	}
	return raid, true
}

// AddUser handles POST /v1/guilds/{guildId}/raids/{raidId}/users - add a
// named placeholder or a linked platform user
func (h *RosterHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	raid, ok := h.scopedRaid(w, r)
	if !ok {
		return
	}

	var req model.AddUserRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	availability, _ := model.ParseAvailability(req.Availability)
	var candidate service.Candidate
	if req.UserID != 0 {
		candidate = service.LinkedCandidate{
			UserID:      req.UserID,
			Nickname:    req.Nickname,
			Username:    req.Username,
			AccountName: req.AccountName,
		}
	} else {
		candidate = service.PlaceholderCandidate{Name: req.Name}
	}

	change, err := h.roster.AddUser(r.Context(), raid.ID, candidate, req.Role, availability)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "add user"))
		return
	}

	WriteData(w, http.StatusCreated, change, raidLinks(raid.GuildID, raid.ID))
}

// ChangeAvailability handles PATCH /v1/guilds/{guildId}/raids/{raidId}/users/{userId}
func (h *RosterHandler) ChangeAvailability(w http.ResponseWriter, r *http.Request) {
	raid, ok := h.scopedRaid(w, r)
	if !ok {
		return
	}
	userID, ok := pathUint(r, "userId")
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid user ID"))
		return
	}

	var req model.ChangeAvailabilityRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	availability, valid := model.ParseAvailability(req.Availability)
	if !valid {
		WriteError(w, model.NewValidationError([]model.FieldError{{
			Field:   "availability",
			Message: "availability must be yes, maybe or backup",
		}}))
		return
	}

	change, err := h.roster.ChangeAvailability(r.Context(), raid.ID, userID, availability)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "change availability"))
		return
	}

	WriteData(w, http.StatusOK, change, raidLinks(raid.GuildID, raid.ID))
}

// RemoveUser handles DELETE /v1/guilds/{guildId}/raids/{raidId}/users/{userId}
func (h *RosterHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	raid, ok := h.scopedRaid(w, r)
	if !ok {
		return
	}
	userID, ok := pathUint(r, "userId")
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid user ID"))
		return
	}

	change, err := h.roster.RemoveUser(r.Context(), raid.ID, userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "remove user"))
		return
	}

	WriteData(w, http.StatusOK, model.RemovalResult{Message: change.Message}, nil)
}

// RemovePlaceholder handles DELETE /v1/guilds/{guildId}/raids/{raidId}/placeholders/{name}
func (h *RosterHandler) RemovePlaceholder(w http.ResponseWriter, r *http.Request) {
	raid, ok := h.scopedRaid(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		WriteError(w, model.NewBadRequestError("placeholder name required"))
		return
	}

	change, err := h.roster.RemoveUserByName(r.Context(), raid.ID, name)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "remove placeholder"))
		return
	}

	WriteData(w, http.StatusOK, model.RemovalResult{Message: change.Message}, nil)
}

// RemoveFromAllRaids handles DELETE /v1/users/{userId}/raids - purge a user
// from every raid, e.g. after they left the guild
func (h *RosterHandler) RemoveFromAllRaids(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(r, "userId")
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid user ID"))
		return
	}

	changed, err := h.roster.RemoveUserFromAllRaids(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "remove user from raids"))
		return
	}
	if changed == nil {
		changed = []string{}
	}

	WriteCollection(w, http.StatusOK, changed, len(changed), nil)
}
