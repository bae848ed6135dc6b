// internal/api/tournaments/handlers.go

// Package tournaments serves the tournament catalog and its sign-ups:
// a public list of active tournaments, the admin CRUD surface, and the
// registration endpoints.
package tournaments

import (
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/api/apiutil"
	"github.com/bsse/smashcourt/internal/api/authz"
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

type tournamentJSON struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Category    string     `json:"category"`
	StartAt     *time.Time `json:"start_at"`
	Status      string     `json:"status"`
	CreatedBy   *int64     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTournamentJSON(t appdb.Tournament) tournamentJSON {
	out := tournamentJSON{
		ID:        t.ID,
		Title:     t.Title,
		Category:  t.Category,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
	if t.Description.Valid {
		out.Description = &t.Description.String
	}
	if t.StartAt.Valid {
		out.StartAt = &t.StartAt.Time
	}
	if t.CreatedBy.Valid {
		out.CreatedBy = &t.CreatedBy.Int64
	}
	return out
}

// GET /api/v1/tournaments
//
// Public list: active tournaments only, soonest start first.
func HandleListActive(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	tournaments, err := queries.ListActiveTournaments(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list tournaments")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list tournaments")
		return
	}

	// Public view hides admin bookkeeping.
	type publicTournament struct {
		ID          int64      `json:"id"`
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		Category    string     `json:"category"`
		StartAt     *time.Time `json:"start_at"`
	}
	out := make([]publicTournament, 0, len(tournaments))
	for _, t := range tournaments {
		item := publicTournament{ID: t.ID, Title: t.Title, Category: t.Category}
		if t.Description.Valid {
			item.Description = &t.Description.String
		}
		if t.StartAt.Valid {
			item.StartAt = &t.StartAt.Time
		}
		out = append(out, item)
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// GET /api/v1/tournaments/admin/all (admin)
func HandleListAll(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	tournaments, err := queries.ListAllTournaments(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list tournaments")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list tournaments")
		return
	}

	out := make([]tournamentJSON, 0, len(tournaments))
	for _, t := range tournaments {
		out = append(out, toTournamentJSON(t))
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// POST /api/v1/tournaments (admin)
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	var req struct {
		Title       string  `json:"title"`
		Category    string  `json:"category"`
		Description *string `json:"description"`
		StartAt     *string `json:"start_at"`
		Status      string  `json:"status"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Category == "" {
		apiutil.WriteMessage(w, http.StatusBadRequest, "title and category are required")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	params := appdb.CreateTournamentParams{
		Title:    req.Title,
		Category: req.Category,
		Status:   req.Status,
	}
	if req.Description != nil {
		params.Description = sql.NullString{String: *req.Description, Valid: true}
	}
	if req.StartAt != nil {
		startAt, err := apiutil.ParseSlotTime(*req.StartAt, "start_at")
		if err != nil {
			apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
			return
		}
		params.StartAt = sql.NullTime{Time: startAt, Valid: true}
	}
	if caller := authz.UserFromContext(r.Context()); caller != nil {
		params.CreatedBy = sql.NullInt64{Int64: caller.ID, Valid: true}
	}

	tournament, err := queries.CreateTournament(r.Context(), params)
	if err != nil {
		logger.Error().Err(err).Str("title", req.Title).Msg("Failed to create tournament")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to create tournament")
		return
	}

	logger.Info().Int64("tournament_id", tournament.ID).Str("title", tournament.Title).Msg("Tournament created")
	apiutil.WriteJSON(w, http.StatusCreated, toTournamentJSON(tournament))
}

// PUT /api/v1/tournaments/{id} (admin)
//
// Partial update: absent fields keep their stored values, status included.
func HandleUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
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

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		StartAt     *string `json:"start_at"`
		Status      *string `json:"status"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := appdb.UpdateTournamentParams{ID: id}
	if req.Title != nil {
		params.Title = sql.NullString{String: *req.Title, Valid: true}
	}
	if req.Description != nil {
		params.Description = sql.NullString{String: *req.Description, Valid: true}
	}
	if req.Category != nil {
		params.Category = sql.NullString{String: *req.Category, Valid: true}
	}
	if req.Status != nil {
		params.Status = sql.NullString{String: *req.Status, Valid: true}
	}
	if req.StartAt != nil {
		startAt, err := apiutil.ParseSlotTime(*req.StartAt, "start_at")
		if err != nil {
			apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
			return
		}
		params.StartAt = sql.NullTime{Time: startAt, Valid: true}
	}

	tournament, err := queries.UpdateTournament(r.Context(), params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteMessage(w, http.StatusNotFound, "Tournament not found")
			return
		}
		logger.Error().Err(err).Int64("tournament_id", id).Msg("Failed to update tournament")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to update tournament")
		return
	}

	logger.Info().Int64("tournament_id", tournament.ID).Msg("Tournament updated")
	apiutil.WriteJSON(w, http.StatusOK, toTournamentJSON(tournament))
}

// DELETE /api/v1/tournaments/{id} (admin)
//
// Registrations cascade away with the tournament.
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
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

	deleted, err := queries.DeleteTournament(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Int64("tournament_id", id).Msg("Failed to delete tournament")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to delete tournament")
		return
	}
	if deleted == 0 {
		apiutil.WriteMessage(w, http.StatusNotFound, "Tournament not found")
		return
	}

	logger.Info().Int64("tournament_id", id).Msg("Tournament deleted")
	apiutil.WriteMessage(w, http.StatusOK, "Tournament deleted")
}
