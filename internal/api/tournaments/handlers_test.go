package tournaments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/bsse/smashcourt/internal/api/authz"
	appdb "github.com/bsse/smashcourt/internal/db"
)

var testDB *appdb.DB

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "tournaments-test-")
	if err != nil {
		panic(err)
	}

	testDB, err = appdb.New(filepath.Join(dir, "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		panic(err)
	}

	InitHandlers(testDB)

	// created_by references users(id), so the callers must be real rows.
	adminCaller = seedCaller("Admin", "admin@example.com", appdb.UserTypeAdmin)
	memberCaller = seedCaller("Member", "member@example.com", appdb.UserTypeWithPassword)

	code := m.Run()
	testDB.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

var (
	adminCaller  *authz.AuthUser
	memberCaller *authz.AuthUser
)

func seedCaller(name, email, userType string) *authz.AuthUser {
	user, err := testDB.Queries.CreateUser(context.Background(), appdb.CreateUserParams{
		Username: name,
		Email:    email,
		UserType: userType,
	})
	if err != nil {
		panic(err)
	}
	return &authz.AuthUser{ID: user.ID, Username: user.Username, Email: user.Email, Role: user.UserType}
}

func requestAs(user *authz.AuthUser, method, path string, body any) *http.Request {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	r := httptest.NewRequest(method, path, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	if user != nil {
		r = r.WithContext(authz.ContextWithUser(r.Context(), user))
	}
	return r
}

func createTournament(t *testing.T, body map[string]any) tournamentJSON {
	t.Helper()
	w := httptest.NewRecorder()
	HandleCreate(w, requestAs(adminCaller, http.MethodPost, "/api/v1/tournaments", body))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var created tournamentJSON
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	return created
}

func TestCreateTournamentValidation(t *testing.T) {
	w := httptest.NewRecorder()
	HandleCreate(w, requestAs(adminCaller, http.MethodPost, "/api/v1/tournaments",
		map[string]any{"title": "No Category"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = httptest.NewRecorder()
	HandleCreate(w, requestAs(memberCaller, http.MethodPost, "/api/v1/tournaments",
		map[string]any{"title": "Nope", "category": "beach"}))
	if w.Code != http.StatusForbidden {
		t.Fatalf("member create status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestCreateRecordsCreator(t *testing.T) {
	created := createTournament(t, map[string]any{
		"title":    "Founders Cup",
		"category": "beach",
	})
	if created.CreatedBy == nil || *created.CreatedBy != adminCaller.ID {
		t.Fatalf("created_by = %v, want %d", created.CreatedBy, adminCaller.ID)
	}
}

func TestPublicListShowsOnlyActive(t *testing.T) {
	active := createTournament(t, map[string]any{
		"title":    "Summer Open",
		"category": "beach",
		"start_at": "2025-08-01T09:00:00",
	})
	createTournament(t, map[string]any{
		"title":    "Archived Cup",
		"category": "indoor",
		"status":   "closed",
	})

	w := httptest.NewRecorder()
	HandleListActive(w, httptest.NewRequest(http.MethodGet, "/api/v1/tournaments", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var listed []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, item := range listed {
		if item["title"] == "Archived Cup" {
			t.Fatal("public list contains a non-active tournament")
		}
		if _, present := item["status"]; present {
			t.Fatal("public list leaks the status field")
		}
	}

	found := false
	for _, item := range listed {
		if int64(item["id"].(float64)) == active.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("public list missing the active tournament")
	}
}

func TestUpdateTournamentPartial(t *testing.T) {
	created := createTournament(t, map[string]any{
		"title":    "Autumn Cup",
		"category": "beach",
	})

	w := httptest.NewRecorder()
	r := requestAs(adminCaller, http.MethodPut, "/api/v1/tournaments/"+strconv.FormatInt(created.ID, 10),
		map[string]any{"status": "closed"})
	r.SetPathValue("id", strconv.FormatInt(created.ID, 10))
	HandleUpdate(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var updated tournamentJSON
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Status != "closed" {
		t.Fatalf("status = %q, want closed", updated.Status)
	}
	if updated.Title != "Autumn Cup" || updated.Category != "beach" {
		t.Fatalf("absent fields were not preserved: %+v", updated)
	}
}

func TestUpdateMissingTournament(t *testing.T) {
	w := httptest.NewRecorder()
	r := requestAs(adminCaller, http.MethodPut, "/api/v1/tournaments/99999",
		map[string]any{"status": "closed"})
	r.SetPathValue("id", "99999")
	HandleUpdate(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRegistrationLifecycle(t *testing.T) {
	tournament := createTournament(t, map[string]any{
		"title":    "Club Masters",
		"category": "beach",
	})

	w := httptest.NewRecorder()
	HandleRegister(w, requestAs(memberCaller, http.MethodPost, "/api/v1/tournament-registrations",
		map[string]any{
			"tournament_id": tournament.ID,
			"team_name":     "Sand Sharks",
			"email":         "team@example.com",
			"tel_number":    "+36201234567",
			"players":       []string{"Anna", "Bela"},
		}))
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var created registrationJSON
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(created.Players) != 2 || created.Players[0] != "Anna" {
		t.Fatalf("players = %v, want [Anna Bela]", created.Players)
	}

	t.Run("partial update", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := requestAs(memberCaller, http.MethodPut,
			"/api/v1/tournament-registrations/"+strconv.FormatInt(created.ID, 10),
			map[string]any{"tel_number": "+36207654321"})
		r.SetPathValue("id", strconv.FormatInt(created.ID, 10))
		HandleUpdateRegistration(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		var updated registrationJSON
		if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if updated.TelNumber != "+36207654321" {
			t.Fatalf("tel_number = %q, want updated value", updated.TelNumber)
		}
		if updated.Email != "team@example.com" || len(updated.Players) != 2 {
			t.Fatalf("absent fields were not preserved: %+v", updated)
		}
	})

	t.Run("admin list all joins titles", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleListAllRegistrations(w, requestAs(adminCaller, http.MethodGet,
			"/api/v1/tournament-registrations/admin/all", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var rows []struct {
			ID              int64  `json:"id"`
			TournamentTitle string `json:"tournament_title"`
		}
		if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		found := false
		for _, row := range rows {
			if row.ID == created.ID && row.TournamentTitle == "Club Masters" {
				found = true
			}
		}
		if !found {
			t.Fatalf("rows = %+v, want the created registration with its title", rows)
		}
	})

	t.Run("admin list by tournament", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := requestAs(adminCaller, http.MethodGet,
			"/api/v1/tournament-registrations/admin/by-tournament/"+strconv.FormatInt(tournament.ID, 10), nil)
		r.SetPathValue("id", strconv.FormatInt(tournament.ID, 10))
		HandleListRegistrationsByTournament(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		var resp struct {
			Tournament struct {
				Title string `json:"title"`
			} `json:"tournament"`
			Registrations []registrationJSON `json:"registrations"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Tournament.Title != "Club Masters" || len(resp.Registrations) != 1 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("delete", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := requestAs(memberCaller, http.MethodDelete,
			"/api/v1/tournament-registrations/"+strconv.FormatInt(created.ID, 10), nil)
		r.SetPathValue("id", strconv.FormatInt(created.ID, 10))
		HandleDeleteRegistration(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
	})
}

func TestRegisterForMissingTournament(t *testing.T) {
	w := httptest.NewRecorder()
	HandleRegister(w, requestAs(memberCaller, http.MethodPost, "/api/v1/tournament-registrations",
		map[string]any{
			"tournament_id": 99999,
			"email":         "ghost@example.com",
			"tel_number":    "+3620000000",
		}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeleteTournamentCascadesRegistrations(t *testing.T) {
	tournament := createTournament(t, map[string]any{
		"title":    "Cascade Cup",
		"category": "beach",
	})
	reg, err := testDB.Queries.CreateTournamentRegistration(context.Background(), appdb.CreateTournamentRegistrationParams{
		TournamentID: tournament.ID,
		Email:        "cascade@example.com",
		TelNumber:    "+3620111111",
		Players:      `["Solo"]`,
	})
	if err != nil {
		t.Fatalf("failed to seed registration: %v", err)
	}

	w := httptest.NewRecorder()
	r := requestAs(adminCaller, http.MethodDelete,
		"/api/v1/tournaments/"+strconv.FormatInt(tournament.ID, 10), nil)
	r.SetPathValue("id", strconv.FormatInt(tournament.ID, 10))
	HandleDelete(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	if _, err := testDB.Queries.ListRegistrationsByTournament(context.Background(), tournament.ID); err != nil {
		t.Fatalf("failed to list registrations: %v", err)
	}
	regs, _ := testDB.Queries.ListRegistrationsByTournament(context.Background(), tournament.ID)
	for _, row := range regs {
		if row.ID == reg.ID {
			t.Fatal("registration survived tournament delete")
		}
	}
}
