// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bsse/smashcourt/internal/api"
	"github.com/bsse/smashcourt/internal/api/auth"
	"github.com/bsse/smashcourt/internal/api/courts"
	"github.com/bsse/smashcourt/internal/api/reservations"
	"github.com/bsse/smashcourt/internal/api/tournaments"
	"github.com/bsse/smashcourt/internal/api/users"
	"github.com/bsse/smashcourt/internal/config"
)

func newServer(cfg *config.Config, secret []byte) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithAuth(secret),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth
	mux.HandleFunc("POST /api/v1/auth/check-email", auth.HandleCheckEmail)
	mux.HandleFunc("POST /api/v1/auth/register", auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)

	// Users
	mux.HandleFunc("GET /api/v1/users", users.HandleList)
	mux.HandleFunc("PATCH /api/v1/users/set-password", users.HandleSetPassword)
	mux.HandleFunc("DELETE /api/v1/users/by-email/{email}", users.HandleDeleteByEmail)
	mux.HandleFunc("DELETE /api/v1/users/{id}", users.HandleDelete)

	// Courts
	mux.HandleFunc("GET /api/v1/courts", courts.HandleList)
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCreate)
	mux.HandleFunc("DELETE /api/v1/courts/{id}", courts.HandleDelete)

	// Reservations
	mux.HandleFunc("POST /api/v1/reservations/sync", reservations.HandleSync)
	mux.HandleFunc("GET /api/v1/reservations", reservations.HandleWeekRead)
	mux.HandleFunc("DELETE /api/v1/reservations", reservations.HandleAdminDelete)
	mux.HandleFunc("POST /api/v1/reservations/guest", reservations.HandleGuestBooking)

	// Tournaments
	mux.HandleFunc("GET /api/v1/tournaments", tournaments.HandleListActive)
	mux.HandleFunc("GET /api/v1/tournaments/admin/all", tournaments.HandleListAll)
	mux.HandleFunc("POST /api/v1/tournaments", tournaments.HandleCreate)
	mux.HandleFunc("PUT /api/v1/tournaments/{id}", tournaments.HandleUpdate)
	mux.HandleFunc("DELETE /api/v1/tournaments/{id}", tournaments.HandleDelete)

	// Tournament registrations
	mux.HandleFunc("POST /api/v1/tournament-registrations", tournaments.HandleRegister)
	mux.HandleFunc("PUT /api/v1/tournament-registrations/{id}", tournaments.HandleUpdateRegistration)
	mux.HandleFunc("DELETE /api/v1/tournament-registrations/{id}", tournaments.HandleDeleteRegistration)
	mux.HandleFunc("GET /api/v1/tournament-registrations/admin/all", tournaments.HandleListAllRegistrations)
	mux.HandleFunc("GET /api/v1/tournament-registrations/admin/by-tournament/{id}", tournaments.HandleListRegistrationsByTournament)
}
