package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	appdb "github.com/bsse/smashcourt/internal/db"
	"github.com/bsse/smashcourt/internal/ratelimit"
)

var testDB *appdb.DB

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "auth-test-")
	if err != nil {
		panic(err)
	}

	testDB, err = appdb.New(filepath.Join(dir, "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		panic(err)
	}

	InitHandlers(testDB, []byte("test-secret"), ratelimit.NewLimiter(nil))

	// No live DNS in tests.
	resolveMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		return []*net.MX{{Host: "mail." + domain}}, nil
	}

	code := m.Run()
	testDB.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func decodeAuthResponse(t *testing.T, w *httptest.ResponseRecorder) authResponse {
	t.Helper()

	var resp authResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestCheckEmailUnknownUser(t *testing.T) {
	w := postJSON(t, HandleCheckEmail, "/api/v1/auth/check-email", map[string]string{
		"email": "nobody@example.com",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeAuthResponse(t, w)
	if resp.Status != "name_required" {
		t.Fatalf("status = %q, want name_required", resp.Status)
	}
	if resp.Token != "" {
		t.Fatal("expected no token for unknown user")
	}
}

func TestCheckEmailPasswordlessUserGetsToken(t *testing.T) {
	ctx := context.Background()
	user, err := testDB.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Username: "Mira",
		Email:    "mira@example.com",
		UserType: appdb.UserTypeWithoutPassword,
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	w := postJSON(t, HandleCheckEmail, "/api/v1/auth/check-email", map[string]string{
		"email": "mira@example.com",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeAuthResponse(t, w)
	if resp.Status != "ok" {
		t.Fatalf("status = %q, want ok", resp.Status)
	}

	caller, err := ParseToken([]byte("test-secret"), resp.Token)
	if err != nil {
		t.Fatalf("failed to parse issued token: %v", err)
	}
	if caller.ID != user.ID || caller.Username != "Mira" {
		t.Fatalf("token identifies %+v, want user %d Mira", caller, user.ID)
	}
}

func TestCheckEmailPasswordProtectedUser(t *testing.T) {
	ctx := context.Background()
	user, err := testDB.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Username: "Otto",
		Email:    "otto@example.com",
		UserType: appdb.UserTypeWithoutPassword,
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := testDB.Queries.SetUserPassword(ctx, appdb.SetUserPasswordParams{
		ID:           user.ID,
		PasswordHash: hash,
		UserType:     appdb.UserTypeWithPassword,
	}); err != nil {
		t.Fatalf("failed to set password: %v", err)
	}

	w := postJSON(t, HandleCheckEmail, "/api/v1/auth/check-email", map[string]string{
		"email": "otto@example.com",
	})

	resp := decodeAuthResponse(t, w)
	if resp.Status != "password_required" {
		t.Fatalf("status = %q, want password_required", resp.Status)
	}
	if resp.Token != "" {
		t.Fatal("expected no token for password-protected account")
	}
}

func TestCheckEmailRejectsDeadDomain(t *testing.T) {
	orig := resolveMX
	resolveMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
		return nil, errors.New("no such host")
	}
	defer func() { resolveMX = orig }()

	w := postJSON(t, HandleCheckEmail, "/api/v1/auth/check-email", map[string]string{
		"email": "someone@invalid.test",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRegisterCreatesUserAndIssuesToken(t *testing.T) {
	w := postJSON(t, HandleRegister, "/api/v1/auth/register", map[string]string{
		"email": "pia@example.com",
		"name":  "Pia",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	resp := decodeAuthResponse(t, w)
	if resp.Status != "success" || resp.Token == "" {
		t.Fatalf("response = %+v, want success with token", resp)
	}

	user, err := testDB.Queries.GetUserByEmail(context.Background(), "pia@example.com")
	if err != nil {
		t.Fatalf("registered user not found: %v", err)
	}
	if user.UserType != appdb.UserTypeWithoutPassword {
		t.Fatalf("user_type = %q, want %q", user.UserType, appdb.UserTypeWithoutPassword)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	first := postJSON(t, HandleRegister, "/api/v1/auth/register", map[string]string{
		"email": "dupe@example.com",
		"name":  "First",
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("seed registration failed: %d %s", first.Code, first.Body.String())
	}

	w := postJSON(t, HandleRegister, "/api/v1/auth/register", map[string]string{
		"email": "dupe@example.com",
		"name":  "Second",
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if resp := decodeAuthResponse(t, w); resp.Status != "user_exists" {
		t.Fatalf("status = %q, want user_exists", resp.Status)
	}
}

func TestRegisterMissingName(t *testing.T) {
	w := postJSON(t, HandleRegister, "/api/v1/auth/register", map[string]string{
		"email": "nameless@example.com",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLoginFlow(t *testing.T) {
	ctx := context.Background()
	user, err := testDB.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Username: "Rein",
		Email:    "rein@example.com",
		UserType: appdb.UserTypeWithoutPassword,
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	hash, err := HashPassword("open sesame")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := testDB.Queries.SetUserPassword(ctx, appdb.SetUserPasswordParams{
		ID:           user.ID,
		PasswordHash: hash,
		UserType:     appdb.UserTypeWithPassword,
	}); err != nil {
		t.Fatalf("failed to set password: %v", err)
	}

	t.Run("unknown user", func(t *testing.T) {
		w := postJSON(t, HandleLogin, "/api/v1/auth/login", map[string]string{
			"email":    "ghost@example.com",
			"password": "whatever",
		})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(t, HandleLogin, "/api/v1/auth/login", map[string]string{
			"email":    "rein@example.com",
			"password": "close sesame",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("success", func(t *testing.T) {
		w := postJSON(t, HandleLogin, "/api/v1/auth/login", map[string]string{
			"email":    "rein@example.com",
			"password": "open sesame",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		resp := decodeAuthResponse(t, w)
		caller, err := ParseToken([]byte("test-secret"), resp.Token)
		if err != nil {
			t.Fatalf("failed to parse issued token: %v", err)
		}
		if caller.ID != user.ID {
			t.Fatalf("token subject = %d, want %d", caller.ID, user.ID)
		}
	})
}

func TestLoginWithoutPasswordSet(t *testing.T) {
	ctx := context.Background()
	if _, err := testDB.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Username: "Sanna",
		Email:    "sanna@example.com",
		UserType: appdb.UserTypeWithoutPassword,
	}); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	w := postJSON(t, HandleLogin, "/api/v1/auth/login", map[string]string{
		"email":    "sanna@example.com",
		"password": "anything",
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if resp := decodeAuthResponse(t, w); resp.Status != "no_password_set" {
		t.Fatalf("status = %q, want no_password_set", resp.Status)
	}
}

func TestLoginLockoutAfterFailures(t *testing.T) {
	ctx := context.Background()
	user, err := testDB.Queries.CreateUser(ctx, appdb.CreateUserParams{
		Username: "Tove",
		Email:    "tove@example.com",
		UserType: appdb.UserTypeWithoutPassword,
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	hash, err := HashPassword("right answer")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := testDB.Queries.SetUserPassword(ctx, appdb.SetUserPasswordParams{
		ID:           user.ID,
		PasswordHash: hash,
		UserType:     appdb.UserTypeWithPassword,
	}); err != nil {
		t.Fatalf("failed to set password: %v", err)
	}

	for i := 0; i < 5; i++ {
		w := postJSON(t, HandleLogin, "/api/v1/auth/login", map[string]string{
			"email":    "tove@example.com",
			"password": "wrong answer",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i, w.Code, http.StatusUnauthorized)
		}
	}

	// The correct password no longer helps while locked out.
	w := postJSON(t, HandleLogin, "/api/v1/auth/login", map[string]string{
		"email":    "tove@example.com",
		"password": "right answer",
	})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on lockout")
	}
}
