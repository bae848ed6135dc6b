// internal/api/courts/handlers.go
package courts

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/api/apiutil"
	appdb "github.com/bsse/smashcourt/internal/db"
)

var (
	queries  *appdb.Queries
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		queries = database.Queries
	})
}

type courtJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Number int64  `json:"number"`
}

// GET /api/v1/courts
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Court handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	courts, err := queries.ListCourts(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list courts")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list courts")
		return
	}

	out := make([]courtJSON, 0, len(courts))
	for _, court := range courts {
		out = append(out, courtJSON{ID: court.ID, Name: court.Name, Number: court.Number})
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// POST /api/v1/courts (admin)
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Court handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	var req struct {
		Name   string `json:"name"`
		Number int64  `json:"number"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Number <= 0 {
		apiutil.WriteMessage(w, http.StatusBadRequest, "name and number are required")
		return
	}

	court, err := queries.CreateCourt(r.Context(), appdb.CreateCourtParams{
		Name:   req.Name,
		Number: req.Number,
	})
	if err != nil {
		logger.Error().Err(err).Str("name", req.Name).Msg("Failed to create court")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to create court")
		return
	}

	logger.Info().Int64("court_id", court.ID).Str("name", court.Name).Msg("Court created")
	apiutil.WriteJSON(w, http.StatusCreated, courtJSON{ID: court.ID, Name: court.Name, Number: court.Number})
}

// DELETE /api/v1/courts/{id} (admin)
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Court handlers not initialized")
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

	deleted, err := queries.DeleteCourt(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Int64("court_id", id).Msg("Failed to delete court")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to delete court")
		return
	}
	if deleted == 0 {
		apiutil.WriteMessage(w, http.StatusNotFound, "Court not found")
		return
	}

	logger.Info().Int64("court_id", id).Msg("Court deleted")
	apiutil.WriteMessage(w, http.StatusOK, "Court deleted")
}
