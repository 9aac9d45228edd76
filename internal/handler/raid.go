package handler

import (
	"net/http"
	"strconv"

	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/service"
)

// RaidHandler handles raid registration and lookup endpoints
type RaidHandler struct {
	roster *service.RosterService
}

// NewRaidHandler creates a new raid handler
func NewRaidHandler(roster *service.RosterService) *RaidHandler {
	return &RaidHandler{roster: roster}
}

// RegisterRoutes registers raid routes
func (h *RaidHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/guilds/{guildId}/raids", h.List)
	mux.HandleFunc("POST /v1/guilds/{guildId}/raids", h.Create)
	mux.HandleFunc("GET /v1/guilds/{guildId}/raids/{raidId}", h.Get)
	mux.HandleFunc("PATCH /v1/guilds/{guildId}/raids/{raidId}", h.Update)
	mux.HandleFunc("DELETE /v1/guilds/{guildId}/raids/{raidId}", h.Delete)
	mux.HandleFunc("GET /v1/guilds/{guildId}/raids/{raidId}/roster.csv", h.ExportRoster)
}

func raidPath(guildID uint64, raidID string) string {
	return "/v1/guilds/" + strconv.FormatUint(guildID, 10) + "/raids/" + raidID
}

func raidLinks(guildID uint64, raidID string) map[string]string {
	self := raidPath(guildID, raidID)
	return map[string]string{
		"self":   self,
		"users":  self + "/users",
		"roster": self + "/roster.csv",
	}
}

// List handles GET /v1/guilds/{guildId}/raids
func (h *RaidHandler) List(w http.ResponseWriter, r *http.Request) {
	guild, ok := guildID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid guild ID"))
		return
	}

	raids := h.roster.ListRaids(guild)
	WriteCollection(w, http.StatusOK, raids, len(raids), map[string]string{
		"self": "/v1/guilds/" + strconv.FormatUint(guild, 10) + "/raids",
	})
}

// Create handles POST /v1/guilds/{guildId}/raids - register a raid for a rendered message
func (h *RaidHandler) Create(w http.ResponseWriter, r *http.Request) {
	guild, ok := guildID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid guild ID"))
		return
	}

	var req model.CreateRaidRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	raid, err := h.roster.CreateRaid(r.Context(), guild, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create raid"))
		return
	}

	WriteData(w, http.StatusCreated, raid, raidLinks(guild, raid.ID))
}

// Get handles GET /v1/guilds/{guildId}/raids/{raidId}
func (h *RaidHandler) Get(w http.ResponseWriter, r *http.Request) {
	guild, ok := guildID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid guild ID"))
		return
	}

	raid, err := h.roster.GetRaid(guild, r.PathValue("raidId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, raid, raidLinks(guild, raid.ID))
}

// Update handles PATCH /v1/guilds/{guildId}/raids/{raidId} - scheduling metadata only
func (h *RaidHandler) Update(w http.ResponseWriter, r *http.Request) {
	guild, ok := guildID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid guild ID"))
		return
	}

	var req model.UpdateRaidRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	raid, err := h.roster.UpdateRaid(r.Context(), guild, r.PathValue("raidId"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update raid"))
		return
	}

	WriteData(w, http.StatusOK, raid, raidLinks(guild, raid.ID))
}

// Delete handles DELETE /v1/guilds/{guildId}/raids/{raidId}
func (h *RaidHandler) Delete(w http.ResponseWriter, r *http.Request) {
	guild, ok := guildID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid guild ID"))
		return
	}

	if err := h.roster.RemoveRaid(r.Context(), guild, r.PathValue("raidId")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "remove raid"))
		return
	}

	WriteNoContent(w)
}

// ExportRoster handles GET /v1/guilds/{guildId}/raids/{raidId}/roster.csv
func (h *RaidHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	guild, ok := guildID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("invalid guild ID"))
		return
	}

	raid, err := h.roster.GetRaid(guild, r.PathValue("raidId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	rows := raid.RosterRows()
	WriteCSV(w, "raid-"+raid.ID+".csv", &rows)
}
