// internal/api/tournaments/registrations.go
package tournaments

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/api/apiutil"
	appdb "github.com/bsse/smashcourt/internal/db"
)

type registrationJSON struct {
	ID           int64     `json:"id"`
	TournamentID int64     `json:"tournament_id"`
	TeamName     *string   `json:"team_name"`
	Email        string    `json:"email"`
	TelNumber    string    `json:"tel_number"`
	Players      []string  `json:"players"`
	CreatedAt    time.Time `json:"created_at"`
}

func toRegistrationJSON(reg appdb.TournamentRegistration) registrationJSON {
	out := registrationJSON{
		ID:           reg.ID,
		TournamentID: reg.TournamentID,
		Email:        reg.Email,
		TelNumber:    reg.TelNumber,
		Players:      decodePlayers(reg.Players),
		CreatedAt:    reg.CreatedAt,
	}
	if reg.TeamName.Valid {
		out.TeamName = &reg.TeamName.String
	}
	return out
}

// decodePlayers unpacks the stored JSON array; a row that somehow holds
// malformed text comes back as an empty roster rather than an error.
func decodePlayers(stored string) []string {
	var players []string
	if err := json.Unmarshal([]byte(stored), &players); err != nil || players == nil {
		return []string{}
	}
	return players
}

func encodePlayers(players []string) (string, error) {
	if players == nil {
		players = []string{}
	}
	encoded, err := json.Marshal(players)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// POST /api/v1/tournament-registrations
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if user := apiutil.RequireUser(w, r); user == nil {
		return
	}

	var req struct {
		TournamentID int64    `json:"tournament_id"`
		TeamName     *string  `json:"team_name"`
		Email        string   `json:"email"`
		TelNumber    string   `json:"tel_number"`
		Players      []string `json:"players"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TournamentID <= 0 || req.Email == "" || req.TelNumber == "" {
		apiutil.WriteMessage(w, http.StatusBadRequest, "tournament_id, email and tel_number are required")
		return
	}

	if _, err := queries.GetTournament(r.Context(), req.TournamentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteMessage(w, http.StatusNotFound, "Tournament not found")
			return
		}
		logger.Error().Err(err).Int64("tournament_id", req.TournamentID).Msg("Failed to look up tournament")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	players, err := encodePlayers(req.Players)
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "players must be a list of names")
		return
	}

	params := appdb.CreateTournamentRegistrationParams{
		TournamentID: req.TournamentID,
		Email:        req.Email,
		TelNumber:    req.TelNumber,
		Players:      players,
	}
	if req.TeamName != nil {
		params.TeamName = sql.NullString{String: *req.TeamName, Valid: true}
	}

	registration, err := queries.CreateTournamentRegistration(r.Context(), params)
	if err != nil {
		logger.Error().Err(err).Int64("tournament_id", req.TournamentID).Msg("Failed to create registration")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	logger.Info().
		Int64("registration_id", registration.ID).
		Int64("tournament_id", registration.TournamentID).
		Msg("Tournament registration created")
	apiutil.WriteJSON(w, http.StatusCreated, toRegistrationJSON(registration))
}

// PUT /api/v1/tournament-registrations/{id}
//
// Partial update, same coalescing rules as tournament updates.
func HandleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if user := apiutil.RequireUser(w, r); user == nil {
		return
	}

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}

	var req struct {
		TeamName  *string  `json:"team_name"`
		Email     *string  `json:"email"`
		TelNumber *string  `json:"tel_number"`
		Players   []string `json:"players"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := appdb.UpdateTournamentRegistrationParams{ID: id}
	if req.TeamName != nil {
		params.TeamName = sql.NullString{String: *req.TeamName, Valid: true}
	}
	if req.Email != nil {
		params.Email = sql.NullString{String: *req.Email, Valid: true}
	}
	if req.TelNumber != nil {
		params.TelNumber = sql.NullString{String: *req.TelNumber, Valid: true}
	}
	if req.Players != nil {
		players, err := encodePlayers(req.Players)
		if err != nil {
			apiutil.WriteMessage(w, http.StatusBadRequest, "players must be a list of names")
			return
		}
		params.Players = sql.NullString{String: players, Valid: true}
	}

	registration, err := queries.UpdateTournamentRegistration(r.Context(), params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteMessage(w, http.StatusNotFound, "Registration not found")
			return
		}
		logger.Error().Err(err).Int64("registration_id", id).Msg("Failed to update registration")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to update registration")
		return
	}

	logger.Info().Int64("registration_id", registration.ID).Msg("Tournament registration updated")
	apiutil.WriteJSON(w, http.StatusOK, toRegistrationJSON(registration))
}

// DELETE /api/v1/tournament-registrations/{id}
func HandleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if user := apiutil.RequireUser(w, r); user == nil {
		return
	}

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}

	deleted, err := queries.DeleteTournamentRegistration(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Int64("registration_id", id).Msg("Failed to delete registration")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to delete registration")
		return
	}
	if deleted == 0 {
		apiutil.WriteMessage(w, http.StatusNotFound, "Registration not found")
		return
	}

	logger.Info().Int64("registration_id", id).Msg("Tournament registration deleted")
	apiutil.WriteMessage(w, http.StatusOK, "Registration deleted")
}

// GET /api/v1/tournament-registrations/admin/all (admin)
func HandleListAllRegistrations(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Tournament handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	rows, err := queries.ListAllRegistrations(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list registrations")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list registrations")
		return
	}

	type adminRow struct {
		registrationJSON
		TournamentTitle string `json:"tournament_title"`
	}
	out := make([]adminRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminRow{
			registrationJSON: toRegistrationJSON(row.TournamentRegistration),
			TournamentTitle:  row.TournamentTitle,
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, out)
}

// GET /api/v1/tournament-registrations/admin/by-tournament/{id} (admin)
func HandleListRegistrationsByTournament(w http.ResponseWriter, r *http.Request) {
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

	tournament, err := queries.GetTournament(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteMessage(w, http.StatusNotFound, "Tournament not found")
			return
		}
		logger.Error().Err(err).Int64("tournament_id", id).Msg("Failed to look up tournament")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list registrations")
		return
	}

	registrations, err := queries.ListRegistrationsByTournament(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Int64("tournament_id", id).Msg("Failed to list registrations")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list registrations")
		return
	}

	out := make([]registrationJSON, 0, len(registrations))
	for _, reg := range registrations {
		out = append(out, toRegistrationJSON(reg))
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"tournament": map[string]any{
			"id":    tournament.ID,
			"title": tournament.Title,
		},
		"registrations": out,
	})
}
