// internal/api/apiutil/handlers.go
package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/api/authz"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteMessage writes the common `{ "message": ... }` response shape.
func WriteMessage(w http.ResponseWriter, status int, format string, args ...any) error {
	return WriteJSON(w, status, map[string]string{"message": fmt.Sprintf(format, args...)})
}

// RequireAdmin gates admin-only handlers. It writes the error response and
// returns false when the caller is missing or not an admin.
func RequireAdmin(w http.ResponseWriter, r *http.Request) bool {
	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	if err := authz.RequireRole(r.Context(), authz.RoleAdmin); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Msg("Admin access denied: unauthenticated")
			WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, authz.ErrForbidden):
			logEvent := logger.Warn()
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("Admin access denied: forbidden")
			WriteMessage(w, http.StatusForbidden, "Forbidden")
		default:
			logger.Error().Err(err).Msg("Admin access denied: error")
			WriteMessage(w, http.StatusInternalServerError, "Failed to authorize request")
		}
		return false
	}
	return true
}

// RequireUser resolves the authenticated caller or writes a 401 and returns
// nil.
func RequireUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Msg("Request rejected: unauthenticated")
		WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
		return nil
	}
	return user
}
