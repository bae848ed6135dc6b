package courts

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
	dir, err := os.MkdirTemp("", "courts-test-")
	if err != nil {
		panic(err)
	}

	testDB, err = appdb.New(filepath.Join(dir, "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		panic(err)
	}

	InitHandlers(testDB)

	code := m.Run()
	testDB.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func adminRequest(method, path string, body any) *http.Request {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	r := httptest.NewRequest(method, path, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(authz.ContextWithUser(r.Context(), &authz.AuthUser{
		ID:       1,
		Username: "Admin",
		Role:     authz.RoleAdmin,
	}))
}

func TestCreateListDeleteCourt(t *testing.T) {
	w := httptest.NewRecorder()
	HandleCreate(w, adminRequest(http.MethodPost, "/api/v1/courts",
		map[string]any{"name": "Center", "number": 1}))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var created courtJSON
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.Name != "Center" || created.Number != 1 {
		t.Fatalf("created = %+v, want Center/1", created)
	}

	w = httptest.NewRecorder()
	HandleList(w, httptest.NewRequest(http.MethodGet, "/api/v1/courts", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", w.Code, http.StatusOK)
	}
	var listed []courtJSON
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("listed = %+v, want the created court", listed)
	}

	w = httptest.NewRecorder()
	r := adminRequest(http.MethodDelete, "/api/v1/courts/"+strconv.FormatInt(created.ID, 10), nil)
	r.SetPathValue("id", strconv.FormatInt(created.ID, 10))
	HandleDelete(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	courts, err := testDB.Queries.ListCourts(context.Background())
	if err != nil {
		t.Fatalf("failed to list courts: %v", err)
	}
	if len(courts) != 0 {
		t.Fatalf("stored %d courts after delete, want 0", len(courts))
	}
}

func TestCreateCourtRequiresAdmin(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"name": "Side", "number": 2})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/courts", bytes.NewReader(payload))
	r = r.WithContext(authz.ContextWithUser(r.Context(), &authz.AuthUser{
		ID:       2,
		Username: "Member",
		Role:     appdb.UserTypeWithPassword,
	}))

	w := httptest.NewRecorder()
	HandleCreate(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestCreateCourtValidation(t *testing.T) {
	w := httptest.NewRecorder()
	HandleCreate(w, adminRequest(http.MethodPost, "/api/v1/courts", map[string]any{"name": "No Number"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteMissingCourt(t *testing.T) {
	w := httptest.NewRecorder()
	r := adminRequest(http.MethodDelete, "/api/v1/courts/9999", nil)
	r.SetPathValue("id", "9999")
	HandleDelete(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
