package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danifischer/raidbot/internal/database"
	"github.com/danifischer/raidbot/internal/middleware"
	"github.com/danifischer/raidbot/internal/model"
	"github.com/danifischer/raidbot/internal/repository"
	"github.com/danifischer/raidbot/internal/service"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeAccounts struct {
	accounts map[uint64][]string
}

func (f *fakeAccounts) ListAccounts(_ context.Context, _, userID uint64, _ string) ([]string, error) {
	return f.accounts[userID], nil
}

func (f *fakeAccounts) DisplayName(context.Context, uint64, uint64) (string, error) {
	return "", nil
}

type fakePlatform struct {
	mu  sync.Mutex
	dms map[uint64][]string
}

func (f *fakePlatform) RenderRoster(context.Context, *model.Raid) error { return nil }

func (f *fakePlatform) RemoveReaction(context.Context, uint64, uint64, uint64, string) error {
	return nil
}

func (f *fakePlatform) SendDirectMessage(_ context.Context, userID uint64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dms == nil {
		f.dms = make(map[uint64][]string)
	}
	f.dms[userID] = append(f.dms[userID], text)
	return nil
}

func (f *fakePlatform) DeleteMessage(context.Context, uint64, uint64) error { return nil }

// ============================================================================
// Test Fixture
// ============================================================================

const (
	testGuild   uint64 = 100
	testChannel uint64 = 200
	aliceID     uint64 = 1000
)

type apiFixture struct {
	store         *database.MemorySnapshotStore
	repo          *repository.RaidRepository
	roster        *service.RosterService
	conversations *service.ConversationService
	platform      *fakePlatform
	mux           *http.ServeMux
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		store:    database.NewMemorySnapshotStore(),
		platform: &fakePlatform{},
		mux:      http.NewServeMux(),
	}
	accounts := &fakeAccounts{accounts: map[uint64][]string{aliceID: {"Alice.1234"}}}
	f.repo = repository.NewRaidRepository(repository.RaidRepositoryConfig{
		Store:         f.store,
		SaveTries:     1,
		RetryInterval: time.Millisecond,
	})
	f.roster = service.NewRosterService(service.RosterServiceConfig{
		RaidRepo:           f.repo,
		Accounts:           accounts,
		Platform:           f.platform,
		DefaultAccountType: "gw2",
		Templates: map[string][]model.CreateRaidRoleRequest{
			"fractal": {{Name: "Tank", Capacity: 1}, {Name: "DPS", Capacity: 4}},
		},
	})
	f.conversations = service.NewConversationService(service.ConversationServiceConfig{
		Roster:   f.roster,
		Accounts: accounts,
		Platform: f.platform,
	})
	reactions := service.NewReactionService(service.ReactionServiceConfig{
		Roster:        f.roster,
		Accounts:      accounts,
		Platform:      f.platform,
		Conversations: f.conversations,
	})

	NewHealthHandler(f.store, f.repo).RegisterRoutes(f.mux)
	NewRaidHandler(f.roster).RegisterRoutes(f.mux)
	NewRosterHandler(f.roster).RegisterRoutes(f.mux)
	NewReactionHandler(reactions, middleware.NewGuildAllowlist([]string{"100"})).RegisterRoutes(f.mux)
	NewConversationHandler(f.conversations).RegisterRoutes(f.mux)
	return f
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

// createRaid registers a Tank(1)/Healer(2) raid on messageID and returns its ID
func (f *apiFixture) createRaid(t *testing.T, messageID uint64) string {
	t.Helper()
	rr := f.do(http.MethodPost, "/v1/guilds/100/raids", model.CreateRaidRequest{
		ChannelID: testChannel,
		MessageID: messageID,
		Title:     "Raid night",
		StartTime: time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC),
		Roles: []model.CreateRaidRoleRequest{
			{Name: "Tank", Capacity: 1},
			{Name: "Healer", Capacity: 2},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create raid: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data model.Raid `json:"data"`
	}
	decode(t, rr, &resp)
	return resp.Data.ID
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) model.ProblemDetails {
	t.Helper()
	var pd model.ProblemDetails
	decode(t, rr, &pd)
	return pd
}

// ============================================================================
// Health Tests
// ============================================================================

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

type fixedCount int

func (c fixedCount) Count() int { return int(c) }

type gatewayState bool

func (g gatewayState) IsConnected() bool { return bool(g) }

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createRaid(t, 1)

	rr := f.do(http.MethodGet, "/health", nil)
	var resp HealthResponse
	decode(t, rr, &resp)
	if rr.Code != http.StatusOK || resp.Status != "ok" || resp.Store != "up" || resp.Gateway != "disabled" || resp.Raids != 1 {
		t.Errorf("unexpected health response %d %+v", rr.Code, resp)
	}
}

func TestHealth_StoreDown_Degraded(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewHealthHandler(downStore{}, fixedCount(3)).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "degraded" || resp.Store != "down" || resp.Raids != 3 {
		t.Errorf("unexpected health response %+v", resp)
	}
}

func TestHealth_Gateway(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		connected   bool
		wantStatus  string
		wantGateway string
	}{
		{"connected", true, "ok", "up"},
		{"disconnected", false, "degraded", "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			h := NewHealthHandler(database.NewMemorySnapshotStore(), fixedCount(0)).WithGateway(gatewayState(tt.connected))
			h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			var resp HealthResponse
			decode(t, rr, &resp)
			if rr.Code != http.StatusOK || resp.Status != tt.wantStatus || resp.Gateway != tt.wantGateway || resp.Store != "up" {
				t.Errorf("unexpected health response %d %+v", rr.Code, resp)
			}
		})
	}
}

// ============================================================================
// Raid Tests
// ============================================================================

func TestRaid_CreateGetList(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)

	rr := f.do(http.MethodGet, "/v1/guilds/100/raids/"+raidID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got struct {
		Data  model.Raid        `json:"data"`
		Links map[string]string `json:"_links"`
	}
	decode(t, rr, &got)
	if got.Data.AccountType != "gw2" || len(got.Data.Roles) != 2 {
		t.Errorf("unexpected raid %+v", got.Data)
	}
	if got.Links["roster"] != "/v1/guilds/100/raids/"+raidID+"/roster.csv" {
		t.Errorf("unexpected links %v", got.Links)
	}

	rr = f.do(http.MethodGet, "/v1/guilds/100/raids", nil)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rr, &list)
	if list.Count != 1 {
		t.Errorf("expected 1 raid, got %d", list.Count)
	}
}

func TestRaid_Create_FromTemplate(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rr := f.do(http.MethodPost, "/v1/guilds/100/raids", model.CreateRaidRequest{
		ChannelID: testChannel, MessageID: 9, Title: "Fractals", Template: "Fractal",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = f.do(http.MethodPost, "/v1/guilds/100/raids", model.CreateRaidRequest{
		ChannelID: testChannel, MessageID: 10, Title: "Fractals", Template: "strikes",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown template, got %d", rr.Code)
	}
}

func TestRaid_Create_Errors(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createRaid(t, 1)

	tests := []struct {
		name   string
		body   any
		status int
		code   model.ErrorCode
	}{
		{"duplicate message", model.CreateRaidRequest{ChannelID: testChannel, MessageID: 1, Title: "Again", Roles: []model.CreateRaidRoleRequest{{Name: "Tank", Capacity: 1}}}, http.StatusConflict, model.ErrCodeAlreadyExists},
		{"missing roles", model.CreateRaidRequest{ChannelID: testChannel, MessageID: 2, Title: "No roles"}, http.StatusUnprocessableEntity, model.ErrCodeValidation},
		{"unknown field", map[string]any{"title": "x", "colour": "red"}, http.StatusBadRequest, model.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(http.MethodPost, "/v1/guilds/100/raids", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if pd := decodeProblem(t, rr); pd.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, pd.Code)
			}
		})
	}
}

func TestRaid_OtherGuild_NotFound(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/v1/guilds/999/raids/" + raidID},
		{http.MethodDelete, "/v1/guilds/999/raids/" + raidID},
		{http.MethodDelete, "/v1/guilds/999/raids/" + raidID + "/users/" + strconv.FormatUint(aliceID, 10)},
		{http.MethodGet, "/v1/guilds/999/raids/" + raidID + "/roster.csv"},
	} {
		if rr := f.do(req.method, req.path, nil); rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", req.method, req.path, rr.Code)
		}
	}
	if f.repo.Get(raidID) == nil {
		t.Error("raid should survive a delete from another guild")
	}
}

func TestRaid_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)

	rr := f.do(http.MethodPatch, "/v1/guilds/100/raids/"+raidID, map[string]any{"title": "Raid night (moved)"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := f.repo.Get(raidID).Title; got != "Raid night (moved)" {
		t.Errorf("expected updated title, got %q", got)
	}

	rr = f.do(http.MethodPatch, "/v1/guilds/100/raids/"+raidID, map[string]any{"title": "  "})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for blank title, got %d", rr.Code)
	}

	rr = f.do(http.MethodDelete, "/v1/guilds/100/raids/"+raidID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr = f.do(http.MethodGet, "/v1/guilds/100/raids/"+raidID, nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestRaid_InvalidGuildID(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	if rr := f.do(http.MethodGet, "/v1/guilds/abc/raids", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

// ============================================================================
// Roster Tests
// ============================================================================

func TestRoster_AddUser_PlaceholderAndLinked(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)
	base := "/v1/guilds/100/raids/" + raidID + "/users"

	rr := f.do(http.MethodPost, base, model.AddUserRequest{Name: "Pug", Role: "Tank", Availability: "yes"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var change struct {
		Data service.RosterChange `json:"data"`
	}
	decode(t, rr, &change)
	if change.Data.Message != service.MsgAddedToRoster {
		t.Errorf("unexpected message %q", change.Data.Message)
	}

	rr = f.do(http.MethodPost, base, model.AddUserRequest{UserID: aliceID, Username: "alice", AccountName: "Alice.1234", Role: "Tank", Availability: "yes"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for full role, got %d", rr.Code)
	}
	if pd := decodeProblem(t, rr); pd.Code != model.ErrCodeRoleFull {
		t.Errorf("expected role full code, got %d", pd.Code)
	}

	rr = f.do(http.MethodPost, base, model.AddUserRequest{UserID: aliceID, Username: "alice", AccountName: "Alice.1234", Role: "Tank", Availability: "backup"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected backup sign-up to bypass capacity, got %d", rr.Code)
	}
	entry := f.repo.Get(raidID).Users[aliceID]
	if entry.DisplayName != "alice" || entry.Availability != model.AvailabilityBackup {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestRoster_AddUser_Validation(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)

	rr := f.do(http.MethodPost, "/v1/guilds/100/raids/"+raidID+"/users", model.AddUserRequest{Name: "Pug", UserID: aliceID, Role: "", Availability: "often"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	pd := decodeProblem(t, rr)
	if len(pd.Errors) != 3 {
		t.Errorf("expected 3 field errors, got %+v", pd.Errors)
	}

	rr = f.do(http.MethodPost, "/v1/guilds/100/raids/"+raidID+"/users", model.AddUserRequest{Name: "Pug", Role: "Bard", Availability: "yes"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown role, got %d", rr.Code)
	}
}

func TestRoster_ChangeAvailability(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)
	base := "/v1/guilds/100/raids/" + raidID + "/users"
	f.do(http.MethodPost, base, model.AddUserRequest{UserID: aliceID, AccountName: "Alice.1234", Role: "Healer", Availability: "maybe"})
	userPath := base + "/" + strconv.FormatUint(aliceID, 10)

	rr := f.do(http.MethodPatch, userPath, model.ChangeAvailabilityRequest{Availability: "yes"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := f.repo.Get(raidID).Users[aliceID].Availability; got != model.AvailabilityYes {
		t.Errorf("expected yes, got %s", got)
	}

	if rr = f.do(http.MethodPatch, userPath, model.ChangeAvailabilityRequest{Availability: "flex"}); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for flex, got %d", rr.Code)
	}
	if rr = f.do(http.MethodPatch, base+"/4242", model.ChangeAvailabilityRequest{Availability: "maybe"}); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing entry, got %d", rr.Code)
	}
	if rr = f.do(http.MethodPatch, base+"/nobody", model.ChangeAvailabilityRequest{Availability: "maybe"}); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad user ID, got %d", rr.Code)
	}
}

func TestRoster_RemoveUserAndPlaceholder(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)
	base := "/v1/guilds/100/raids/" + raidID
	f.do(http.MethodPost, base+"/users", model.AddUserRequest{UserID: aliceID, AccountName: "Alice.1234", Role: "Healer", Availability: "yes"})
	f.do(http.MethodPost, base+"/users", model.AddUserRequest{Name: "Pug", Role: "Tank", Availability: "yes"})

	rr := f.do(http.MethodDelete, base+"/users/"+strconv.FormatUint(aliceID, 10), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var result struct {
		Data model.RemovalResult `json:"data"`
	}
	decode(t, rr, &result)
	if !strings.HasPrefix(result.Data.Message, "Successfully removed") {
		t.Errorf("unexpected message %q", result.Data.Message)
	}

	if rr = f.do(http.MethodDelete, base+"/placeholders/Pug", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr = f.do(http.MethodDelete, base+"/placeholders/Pug", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for second removal, got %d", rr.Code)
	}
	if n := len(f.repo.Get(raidID).Users); n != 0 {
		t.Errorf("expected empty roster, got %d entries", n)
	}
}

func TestRoster_RemoveFromAllRaids(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	first := f.createRaid(t, 1)
	second := f.createRaid(t, 2)
	f.createRaid(t, 3)
	for _, raidID := range []string{first, second} {
		f.do(http.MethodPost, "/v1/guilds/100/raids/"+raidID+"/users", model.AddUserRequest{UserID: aliceID, AccountName: "Alice.1234", Role: "Healer", Availability: "yes"})
	}

	rr := f.do(http.MethodDelete, "/v1/users/"+strconv.FormatUint(aliceID, 10)+"/raids", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	decode(t, rr, &resp)
	if resp.Count != 2 {
		t.Errorf("expected 2 raids changed, got %d", resp.Count)
	}
}

func TestRoster_PersistFailure_ServiceUnavailable(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)
	f.store.SetSaveErr(errors.New("disk full"))

	rr := f.do(http.MethodPost, "/v1/guilds/100/raids/"+raidID+"/users", model.AddUserRequest{Name: "Pug", Role: "Tank", Availability: "yes"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if pd := decodeProblem(t, rr); strings.Contains(pd.Detail, "disk full") {
		t.Error("storage detail must not leak")
	}
	if n := len(f.repo.Get(raidID).Users); n != 0 {
		t.Errorf("failed save must roll back, got %d entries", n)
	}
}

func TestRoster_ExportCSV(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)
	f.do(http.MethodPost, "/v1/guilds/100/raids/"+raidID+"/users", model.AddUserRequest{Name: "Pug", Role: "Tank", Availability: "yes"})

	rr := f.do(http.MethodGet, "/v1/guilds/100/raids/"+raidID+"/roster.csv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", rr.Body.String())
	}
	if !strings.HasPrefix(lines[0], "raid_id,title,role,availability") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "Tank,yes,1,Pug,Pug,true") {
		t.Errorf("unexpected row %q", lines[1])
	}
}

// ============================================================================
// Reaction and Conversation Tests
// ============================================================================

func reaction(emoji string, guildID uint64) model.ReactionEvent {
	return model.ReactionEvent{
		Emoji:     emoji,
		UserID:    aliceID,
		GuildID:   guildID,
		ChannelID: testChannel,
		MessageID: 1,
		Username:  "alice",
	}
}

func TestReaction_SignUpThroughConversation(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	raidID := f.createRaid(t, 1)
	symbols := model.DefaultReactionSymbols()

	rr := f.do(http.MethodPost, "/v1/reactions", reaction(symbols.SignOn, testGuild))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result struct {
		Data model.ReactionResult `json:"data"`
	}
	decode(t, rr, &result)
	if result.Data.Outcome != model.OutcomeConversationOpened {
		t.Fatalf("expected conversation opened, got %s", result.Data.Outcome)
	}

	rr = f.do(http.MethodGet, "/v1/conversations/"+strconv.FormatUint(aliceID, 10), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected pending conversation, got %d", rr.Code)
	}

	rr = f.do(http.MethodPost, "/v1/conversations/"+strconv.FormatUint(aliceID, 10)+"/complete",
		model.CompleteConversationRequest{Role: "Healer", AccountName: "alice.1234"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	entry, ok := f.repo.Get(raidID).Users[aliceID]
	if !ok || entry.AccountName != "Alice.1234" || entry.Availability != model.AvailabilityYes {
		t.Errorf("unexpected entry %+v (present=%v)", entry, ok)
	}

	if rr = f.do(http.MethodDelete, "/v1/conversations/"+strconv.FormatUint(aliceID, 10), nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 once the conversation completed, got %d", rr.Code)
	}

	rr = f.do(http.MethodPost, "/v1/reactions", reaction(symbols.SignOff, testGuild))
	decode(t, rr, &result)
	if result.Data.Outcome != model.OutcomeSignedOff || f.repo.Get(raidID).HasUser(aliceID) {
		t.Errorf("expected sign-off, got %s", result.Data.Outcome)
	}
}

func TestReaction_DisallowedGuild_Ignored(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rr := f.do(http.MethodPost, "/v1/reactions", reaction("✅", 555))
	var result struct {
		Data model.ReactionResult `json:"data"`
	}
	decode(t, rr, &result)
	if rr.Code != http.StatusOK || result.Data.Outcome != model.OutcomeIgnored {
		t.Errorf("expected ignored, got %d %s", rr.Code, result.Data.Outcome)
	}
}

func TestReaction_InvalidEvent(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rr := f.do(http.MethodPost, "/v1/reactions", model.ReactionEvent{Emoji: "✅"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rr.Code)
	}
}

func TestConversation_CancelAndList(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createRaid(t, 1)
	f.do(http.MethodPost, "/v1/reactions", reaction("❓", testGuild))

	rr := f.do(http.MethodGet, "/v1/conversations", nil)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rr, &list)
	if list.Count != 1 {
		t.Fatalf("expected 1 pending conversation, got %d", list.Count)
	}

	if rr = f.do(http.MethodDelete, "/v1/conversations/"+strconv.FormatUint(aliceID, 10), nil); rr.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rr.Code)
	}
	if rr = f.do(http.MethodPost, "/v1/conversations/"+strconv.FormatUint(aliceID, 10)+"/complete",
		model.CompleteConversationRequest{Role: "Healer", AccountName: "Alice.1234"}); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after cancel, got %d", rr.Code)
	}
}

// ============================================================================
// Error Mapping Tests
// ============================================================================

func TestMapServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   model.ErrorCode
	}{
		{service.ErrRaidNotFound, http.StatusNotFound, model.ErrCodeNotFound},
		{service.ErrUserNotFound, http.StatusNotFound, model.ErrCodeNotFound},
		{service.ErrNoPendingConversation, http.StatusNotFound, model.ErrCodeNotFound},
		{service.ErrTemplateNotFound, http.StatusUnprocessableEntity, model.ErrCodeValidation},
		{service.ErrUnknownAccount, http.StatusUnprocessableEntity, model.ErrCodeValidation},
		{service.ErrRoleFull, http.StatusConflict, model.ErrCodeRoleFull},
		{service.ErrCrossRoleConflict, http.StatusConflict, model.ErrCodeCrossRoleConflict},
		{service.ErrAccountMissing, http.StatusConflict, model.ErrCodeAccountMissing},
		{service.ErrRaidExists, http.StatusConflict, model.ErrCodeAlreadyExists},
		{service.ErrConversationPending, http.StatusConflict, model.ErrCodeConflict},
		{service.ErrPersist, http.StatusServiceUnavailable, model.ErrCodeStorage},
		{service.ErrPlatform, http.StatusBadGateway, model.ErrCodeInternal},
		{errors.New("boom"), http.StatusInternalServerError, model.ErrCodeInternal},
		{&service.ValidationError{Errors: []model.FieldError{{Field: "title", Message: "required"}}}, http.StatusUnprocessableEntity, model.ErrCodeValidation},
	}

	for _, tt := range tests {
		pd := MapServiceError(fmtWrap(tt.err))
		if pd.Status != tt.status || pd.Code != tt.code {
			t.Errorf("%v: expected %d/%d, got %d/%d", tt.err, tt.status, tt.code, pd.Status, pd.Code)
		}
	}

	if MapServiceError(nil) != nil {
		t.Error("expected nil for nil error")
	}
	if pd := MapServiceErrorWithContext(errors.New("boom"), "add user"); pd.Detail != "add user: an unexpected error occurred" {
		t.Errorf("unexpected detail %q", pd.Detail)
	}
}

// fmtWrap wraps err the way services do so errors.Is/As is exercised
func fmtWrap(err error) error {
	return errors.Join(errors.New("context"), err)
}
