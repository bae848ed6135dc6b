// internal/api/auth/handlers.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/api/apiutil"
	appdb "github.com/bsse/smashcourt/internal/db"
	"github.com/bsse/smashcourt/internal/ratelimit"
)

var (
	queries     *appdb.Queries
	tokenSecret []byte
	limiter     *ratelimit.Limiter
	initOnce    sync.Once
)

const (
	authQueryTimeout = 5 * time.Second
	mxLookupTimeout  = 3 * time.Second
)

// resolveMX is swapped out in tests to avoid live DNS.
var resolveMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
	return net.DefaultResolver.LookupMX(ctx, domain)
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, secret []byte, loginLimiter *ratelimit.Limiter) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		queries = database.Queries
		tokenSecret = secret
		limiter = loginLimiter
	})
}

type authResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// POST /api/v1/auth/check-email
//
// Triage for the combined login/registration form: tells the client whether
// the address is unknown (registration needs a name), protected by a
// password, or passwordless (in which case a token is issued directly).
func HandleCheckEmail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Auth handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := verifyEmailDomain(r.Context(), email); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Email domain cannot receive mail")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteJSON(w, http.StatusOK, authResponse{
				Status:  "name_required",
				Message: "No such user; a name is required to register",
			})
			return
		}
		logger.Error().Err(err).Msg("Failed to look up user by email")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if user.PasswordHash.Valid && user.PasswordHash.String != "" {
		apiutil.WriteJSON(w, http.StatusOK, authResponse{
			Status:  "password_required",
			Message: "This account requires a password",
		})
		return
	}

	token, err := IssueToken(tokenSecret, user)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, authResponse{
		Status:  "ok",
		Message: "User exists and may log in without a password",
		Token:   token,
	})
}

// POST /api/v1/auth/register
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Auth handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		apiutil.WriteJSON(w, http.StatusBadRequest, authResponse{
			Status:  "missing_fields",
			Message: "Name and email are required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	if _, err := queries.GetUserByEmail(ctx, email); err == nil {
		apiutil.WriteJSON(w, http.StatusConflict, authResponse{
			Status:  "user_exists",
			Message: "This email is already registered",
		})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logger.Error().Err(err).Msg("Failed to check existing user")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user, err := queries.CreateUser(ctx, appdb.CreateUserParams{
		Username: name,
		Email:    email,
		UserType: appdb.UserTypeWithoutPassword,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create user")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	token, err := IssueToken(tokenSecret, user)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("User registered")
	apiutil.WriteJSON(w, http.StatusCreated, authResponse{
		Status:  "success",
		Message: "Registration successful",
		Token:   token,
	})
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Auth handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		apiutil.WriteJSON(w, http.StatusBadRequest, authResponse{
			Status:  "missing_fields",
			Message: "Email and password are required",
		})
		return
	}

	if limiter != nil {
		result := limiter.CheckLogin(email, ratelimit.ClientIP(r))
		if !result.Allowed {
			logger.Warn().Str("reason", result.Reason).Msg("Login attempt rate limited")
			w.Header().Set("Retry-After", result.RetryAfter.Round(time.Second).String())
			apiutil.WriteMessage(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), authQueryTimeout)
	defer cancel()

	user, err := queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteJSON(w, http.StatusNotFound, authResponse{
				Status:  "not_found",
				Message: "No such user",
			})
			return
		}
		logger.Error().Err(err).Msg("Failed to look up user for login")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !user.PasswordHash.Valid || user.PasswordHash.String == "" {
		apiutil.WriteJSON(w, http.StatusForbidden, authResponse{
			Status:  "no_password_set",
			Message: "This account has no password set",
		})
		return
	}

	if !VerifyPassword(user.PasswordHash.String, req.Password) {
		if limiter != nil {
			limiter.RecordFailure(email)
		}
		logger.Warn().Int64("user_id", user.ID).Msg("Login failed: invalid password")
		apiutil.WriteJSON(w, http.StatusUnauthorized, authResponse{
			Status:  "invalid_password",
			Message: "Invalid password",
		})
		return
	}

	if limiter != nil {
		limiter.RecordSuccess(email)
	}

	token, err := IssueToken(tokenSecret, user)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("User logged in")
	apiutil.WriteJSON(w, http.StatusOK, authResponse{
		Status:  "success",
		Message: "Login successful",
		Token:   token,
	})
}

// verifyEmailDomain rejects addresses whose domain has no MX records.
func verifyEmailDomain(ctx context.Context, email string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return errors.New("malformed email address")
	}
	domain := email[at+1:]

	lookupCtx, cancel := context.WithTimeout(ctx, mxLookupTimeout)
	defer cancel()

	records, err := resolveMX(lookupCtx, domain)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("domain has no MX records")
	}
	return nil
}
