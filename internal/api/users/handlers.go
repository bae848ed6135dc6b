// internal/api/users/handlers.go
package users

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/api/apiutil"
	"github.com/bsse/smashcourt/internal/api/auth"
	appdb "github.com/bsse/smashcourt/internal/db"
)

var (
	queries  *appdb.Queries
	initOnce sync.Once
)

const minPasswordLength = 6

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		queries = database.Queries
	})
}

type userJSON struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	UserType  string    `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
}

// GET /api/v1/users (admin)
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("User handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	users, err := queries.ListUsers(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	out := make([]userJSON, 0, len(users))
	for _, user := range users {
		out = append(out, userJSON{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			UserType:  user.UserType,
			CreatedAt: user.CreatedAt,
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// DELETE /api/v1/users/{id} (admin)
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("User handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}

	deleted, err := queries.DeleteUser(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", id).Msg("Failed to delete user")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if deleted == 0 {
		apiutil.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}

	logger.Info().Int64("user_id", id).Msg("User deleted")
	apiutil.WriteMessage(w, http.StatusOK, "User deleted")
}

// DELETE /api/v1/users/by-email/{email} (admin)
func HandleDeleteByEmail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("User handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	email := r.PathValue("email")
	if email == "" {
		apiutil.WriteMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	deleted, err := queries.DeleteUserByEmail(r.Context(), email)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to delete user by email")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if deleted == 0 {
		apiutil.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}

	logger.Info().Msg("User deleted by email")
	apiutil.WriteMessage(w, http.StatusOK, "User deleted")
}

// PATCH /api/v1/users/set-password
//
// Self-service: sets a password on the caller's own account and upgrades
// the account type so future logins require it.
func HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("User handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Password) < minPasswordLength {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Password must be at least %d characters", minPasswordLength)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to hash password")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to set password")
		return
	}

	if err := queries.SetUserPassword(r.Context(), appdb.SetUserPasswordParams{
		ID:           user.ID,
		PasswordHash: hash,
		UserType:     appdb.UserTypeWithPassword,
	}); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to store password")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to set password")
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("Password set")
	apiutil.WriteMessage(w, http.StatusOK, "Password set successfully")
}
