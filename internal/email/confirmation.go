package email

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bsse/smashcourt/internal/db"
)

const (
	confirmationEmailTimeout = 5 * time.Second

	bookingConfirmationSubject = "Your court bookings are saved"
)

// FormatBookingList renders the body of a booking confirmation: the court
// header followed by one line per reserved slot, in chronological order.
func FormatBookingList(username string, court db.Court, slots []time.Time) string {
	var b strings.Builder

	name := strings.TrimSpace(username)
	if name == "" {
		name = "player"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nWe saved your bookings.\n\n", name)
	fmt.Fprintf(&b, "Court: %s (court %d)\n\n", court.Name, court.Number)

	if len(slots) == 0 {
		b.WriteString("No slots booked.\n")
		return b.String()
	}

	sorted := make([]time.Time, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for _, slot := range sorted {
		fmt.Fprintf(&b, "- %s at %s\n",
			slot.Format("Monday, 2 January 2006"),
			slot.Format("15:04"))
	}
	return b.String()
}

// SendBookingConfirmation mails a member the list of slots just written for
// a court. Delivery runs in the background; failures are logged and never
// surfaced to the booking flow.
func SendBookingConfirmation(ctx context.Context, q *db.Queries, client EmailSender, userID, courtID int64, slots []time.Time, logger *zerolog.Logger) {
	if client == nil || q == nil || len(slots) == 0 {
		return
	}

	user, err := q.GetUserByID(ctx, userID)
	if err != nil {
		if logger != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user for confirmation email")
		}
		return
	}
	recipient := strings.TrimSpace(user.Email)
	if recipient == "" {
		return
	}

	court, err := q.GetCourt(ctx, courtID)
	if err != nil {
		if logger != nil {
			logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to load court for confirmation email")
		}
		return
	}

	body := FormatBookingList(user.Username, court, slots)

	go func() {
		sendCtx, cancel := newEmailContext(ctx, confirmationEmailTimeout)
		defer cancel()
		if err := client.Send(sendCtx, recipient, bookingConfirmationSubject, body); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send confirmation email")
		}
	}()
}
