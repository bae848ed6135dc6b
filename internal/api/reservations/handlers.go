// internal/api/reservations/handlers.go

// Package reservations exposes the weekly court calendar: the diff-based
// sync endpoint, the public week read, the admin override delete, and
// guest bookings.
package reservations

import (
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/api/apiutil"
	"github.com/bsse/smashcourt/internal/bookings"
	appdb "github.com/bsse/smashcourt/internal/db"
	"github.com/bsse/smashcourt/internal/email"
)

var (
	database *appdb.DB
	mailer   email.EmailSender
	rules    bookings.Rules
	initOnce sync.Once

	// Overridden in tests to pin the booking-rule clock.
	timeNow = time.Now
)

// InitHandlers must be called during server startup before handling
// requests. mailer may be nil when email is not configured.
func InitHandlers(db *appdb.DB, sender email.EmailSender, bookingRules bookings.Rules) {
	if db == nil {
		return
	}
	initOnce.Do(func() {
		database = db
		mailer = sender
		rules = bookingRules
	})
}

// syncEntry is one element of the sync request body. A first element with
// monday set switches the request into the clear-week form; otherwise every
// element names a desired slot.
type syncEntry struct {
	Monday    string `json:"monday,omitempty"`
	CourtID   int64  `json:"court_id"`
	StartTime string `json:"start_time,omitempty"`
}

type conflictJSON struct {
	BookedTime string `json:"booked_time"`
	UserID     *int64 `json:"user_id"`
}

// errSyncConflict signals that the transaction was rolled back because a
// desired slot is held by someone else.
var errSyncConflict = errors.New("sync conflict")

// POST /api/v1/reservations/sync
//
// Replaces the caller's reservation set for one court and week with the
// desired set from the body. The whole load, conflict check, delete and
// insert sequence runs in a single transaction; any slot held by another
// user aborts everything with 409 and the conflict list.
func HandleSync(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if database == nil {
		logger.Error().Msg("Reservation handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var entries []syncEntry
	if err := apiutil.DecodeJSON(r, &entries); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Request body must be a JSON array")
		return
	}
	if len(entries) == 0 {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Request body must not be empty")
		return
	}

	if entries[0].Monday != "" {
		handleClearWeek(w, r, user.ID, entries[0])
		return
	}

	courtID := entries[0].CourtID
	if courtID <= 0 {
		apiutil.WriteMessage(w, http.StatusBadRequest, "court_id must be greater than 0")
		return
	}

	desired := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		if entry.CourtID != courtID {
			apiutil.WriteMessage(w, http.StatusBadRequest, "All slots must target the same court")
			return
		}
		slot, err := apiutil.ParseSlotTime(entry.StartTime, "start_time")
		if err != nil {
			apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
			return
		}
		desired = append(desired, slot)
	}

	window := bookings.WindowForSlots(desired)
	for _, slot := range desired {
		if !window.Contains(slot) {
			apiutil.WriteMessage(w, http.StatusBadRequest, "All slots must fall within the week of %s",
				window.Monday.Format("2006-01-02"))
			return
		}
	}
	now := timeNow().UTC()

	var (
		plan      bookings.Plan
		conflicts []bookings.Conflict
	)
	err := database.RunInTx(r.Context(), func(tx *appdb.DB) error {
		if _, err := tx.Queries.GetCourt(r.Context(), courtID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Court not found", Err: err}
			}
			return err
		}

		existing, err := tx.Queries.ListCourtReservationsInWindow(r.Context(), appdb.ListCourtReservationsInWindowParams{
			CourtID:   courtID,
			StartTime: window.Monday,
			EndTime:   window.End(),
		})
		if err != nil {
			return err
		}

		plan, conflicts = bookings.PlanSync(user.ID, desired, existing)
		if len(conflicts) > 0 {
			return errSyncConflict
		}

		for _, slot := range plan.ToInsert {
			if err := rules.Check(now, slot, desired); err != nil {
				return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
			}
		}

		if len(plan.ToDelete) > 0 {
			if _, err := tx.Queries.DeleteUserReservationsByTimes(r.Context(), appdb.DeleteUserReservationsByTimesParams{
				UserID:  user.ID,
				CourtID: courtID,
				Times:   plan.ToDelete,
			}); err != nil {
				return err
			}
		}

		for _, slot := range plan.ToInsert {
			if _, err := tx.Queries.CreateReservation(r.Context(), appdb.CreateReservationParams{
				UserID:     user.ID,
				CourtID:    courtID,
				BookedTime: slot,
			}); err != nil {
				if isUniqueViolation(err) {
					// Another writer grabbed the slot between our read and
					// this insert. Surface it as a conflict and roll back.
					conflicts = []bookings.Conflict{{BookedTime: slot.Format(bookings.SlotTimeLayout)}}
					return errSyncConflict
				}
				return err
			}
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, errSyncConflict) {
			logger.Info().
				Int64("user_id", user.ID).
				Int64("court_id", courtID).
				Int("conflicts", len(conflicts)).
				Msg("Sync rejected: conflicting slots")
			apiutil.WriteJSON(w, http.StatusConflict, map[string]any{
				"message":   "Slot(s) already taken",
				"conflicts": conflictsJSON(conflicts),
			})
			return
		}
		var handlerErr apiutil.HandlerError
		if errors.As(err, &handlerErr) {
			apiutil.WriteMessage(w, handlerErr.Status, "%s", handlerErr.Message)
			return
		}
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Sync failed")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to sync reservations")
		return
	}

	logger.Info().
		Int64("user_id", user.ID).
		Int64("court_id", courtID).
		Int("inserted", len(plan.ToInsert)).
		Int("deleted", len(plan.ToDelete)).
		Msg("Sync applied")

	if len(plan.ToInsert) > 0 {
		email.SendBookingConfirmation(r.Context(), database.Queries, mailer, user.ID, courtID, desired, logger)
	}

	apiutil.WriteMessage(w, http.StatusOK, "Sync complete. Added: %d, deleted: %d", len(plan.ToInsert), len(plan.ToDelete))
}

// handleClearWeek deletes every reservation the caller holds on a court
// inside the week starting at the given Monday.
func handleClearWeek(w http.ResponseWriter, r *http.Request, userID int64, entry syncEntry) {
	logger := log.Ctx(r.Context())

	monday, err := apiutil.ParseDateField(entry.Monday, "monday")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}
	if entry.CourtID <= 0 {
		apiutil.WriteMessage(w, http.StatusBadRequest, "court_id must be greater than 0")
		return
	}

	window := bookings.WeekWindowFor(monday, 0)
	deleted, err := database.Queries.DeleteUserReservationsInWindow(r.Context(), appdb.DeleteUserReservationsInWindowParams{
		UserID:    userID,
		CourtID:   entry.CourtID,
		StartTime: window.Monday,
		EndTime:   window.End(),
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to clear week")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to clear reservations")
		return
	}

	logger.Info().
		Int64("user_id", userID).
		Int64("court_id", entry.CourtID).
		Int64("deleted", deleted).
		Msg("Week cleared")
	apiutil.WriteMessage(w, http.StatusOK, "%d reservations deleted (empty list)", deleted)
}

type weekReadRow struct {
	ID         int64   `json:"id"`
	BookedTime string  `json:"booked_time"`
	UserID     *int64  `json:"user_id"`
	Username   *string `json:"username"`
}

// GET /api/v1/reservations?court_id=&week_start=
//
// Public read of one court's calendar. The window intentionally spans
// eight days from week_start so a Monday-aligned query also shows the
// following Monday.
func HandleWeekRead(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if database == nil {
		logger.Error().Msg("Reservation handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	courtID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("court_id"), "court_id")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}
	weekStart, err := apiutil.ParseDateField(r.URL.Query().Get("week_start"), "week_start")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}

	rows, err := database.Queries.ListCourtReservationsWithUsernames(r.Context(), appdb.ListCourtReservationsWithUsernamesParams{
		CourtID:   courtID,
		StartTime: weekStart,
		EndTime:   weekStart.AddDate(0, 0, 8),
	})
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to list reservations")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to list reservations")
		return
	}

	out := make([]weekReadRow, 0, len(rows))
	for _, row := range rows {
		item := weekReadRow{
			ID:         row.ID,
			BookedTime: row.BookedTime.Format(bookings.SlotTimeLayout),
		}
		if row.UserID.Valid {
			id := row.UserID.Int64
			item.UserID = &id
		}
		if row.Username.Valid {
			name := row.Username.String
			item.Username = &name
		}
		out = append(out, item)
	}

	apiutil.WriteJSON(w, http.StatusOK, out)
}

// DELETE /api/v1/reservations
//
// Admin override: removes whatever reservation occupies a slot, with no
// ownership check.
func HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if database == nil {
		logger.Error().Msg("Reservation handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	var req struct {
		CourtID   int64  `json:"court_id"`
		StartTime string `json:"start_time"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CourtID <= 0 {
		apiutil.WriteMessage(w, http.StatusBadRequest, "court_id must be greater than 0")
		return
	}
	slot, err := apiutil.ParseSlotTime(req.StartTime, "start_time")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}

	err = database.RunInTx(r.Context(), func(tx *appdb.DB) error {
		reservation, err := tx.Queries.GetReservationByCourtAndTime(r.Context(), appdb.GetReservationByCourtAndTimeParams{
			CourtID:    req.CourtID,
			BookedTime: slot,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Reservation not found", Err: err}
			}
			return err
		}

		if _, err := tx.Queries.DeleteReservation(r.Context(), reservation.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		var handlerErr apiutil.HandlerError
		if errors.As(err, &handlerErr) {
			apiutil.WriteMessage(w, handlerErr.Status, "%s", handlerErr.Message)
			return
		}
		logger.Error().Err(err).Int64("court_id", req.CourtID).Msg("Failed to delete reservation")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to delete reservation")
		return
	}

	logger.Info().
		Int64("court_id", req.CourtID).
		Time("booked_time", slot).
		Msg("Reservation removed by admin")
	apiutil.WriteMessage(w, http.StatusOK, "Reservation deleted")
}

type reservationJSON struct {
	ID         int64  `json:"id"`
	CourtID    int64  `json:"court_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	Status     string `json:"status"`
	BookedTime string `json:"booked_time"`
}

// POST /api/v1/reservations/guest
//
// Unauthenticated single-slot booking held as Pending until the guest
// registers or the club confirms.
func HandleGuestBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if database == nil {
		logger.Error().Msg("Reservation handlers not initialized")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req struct {
		UserName  string `json:"user_name"`
		UserEmail string `json:"user_email"`
		CourtID   int64  `json:"court_id"`
		StartTime string `json:"start_time"`
	}
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserName == "" || req.UserEmail == "" || req.CourtID <= 0 || req.StartTime == "" {
		apiutil.WriteMessage(w, http.StatusBadRequest, "Missing fields")
		return
	}
	slot, err := apiutil.ParseSlotTime(req.StartTime, "start_time")
	if err != nil {
		apiutil.WriteMessage(w, http.StatusBadRequest, "%s", err)
		return
	}

	reservation, err := database.Queries.CreateGuestReservation(r.Context(), appdb.CreateGuestReservationParams{
		UserName:   req.UserName,
		UserEmail:  req.UserEmail,
		CourtID:    req.CourtID,
		BookedTime: slot,
	})
	if err != nil {
		if isUniqueViolation(err) {
			apiutil.WriteMessage(w, http.StatusConflict, "Slot already taken")
			return
		}
		logger.Error().Err(err).Int64("court_id", req.CourtID).Msg("Failed to create guest reservation")
		apiutil.WriteMessage(w, http.StatusInternalServerError, "Failed to create reservation")
		return
	}

	logger.Info().
		Int64("reservation_id", reservation.ID).
		Int64("court_id", reservation.CourtID).
		Msg("Guest reservation created")
	apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Reservation created",
		"reservation": reservationJSON{
			ID:         reservation.ID,
			CourtID:    reservation.CourtID,
			UserName:   reservation.UserName.String,
			UserEmail:  reservation.UserEmail.String,
			Status:     reservation.Status,
			BookedTime: reservation.BookedTime.Format(bookings.SlotTimeLayout),
		},
	})
}

func conflictsJSON(conflicts []bookings.Conflict) []conflictJSON {
	out := make([]conflictJSON, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictJSON{BookedTime: c.BookedTime, UserID: c.HolderID})
	}
	return out
}

// isUniqueViolation reports whether err is the reservations slot
// uniqueness constraint firing.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
