package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bsse/smashcourt/internal/db"
	"github.com/bsse/smashcourt/internal/email"
)

const (
	reminderHoursBefore = 24
	reminderJobWindow   = 15 * time.Minute

	reminderSubject = "Court reminder for tomorrow"
)

// RegisterReminderJobs registers the scheduled reservation reminder task:
// every 15 minutes it picks up reservations starting roughly 24 hours out
// and mails whoever holds them, members and guests alike.
func RegisterReminderJobs(database *db.DB, emailClient email.EmailSender) error {
	if database == nil {
		return fmt.Errorf("reminder jobs require database")
	}

	jobName := "reservation_reminders"
	cronExpr := "*/15 * * * *"
	jobLogger := log.With().
		Str("component", "reservation_reminders_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if emailClient == nil {
			jobLogger.Debug().Msg("Reminder job skipped: email client not configured")
			return
		}

		RunReminderPass(ctx, database, emailClient, time.Now().UTC(), &jobLogger)
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add reservation reminder job: %w", err)
	}

	jobLogger.Info().Msg("Reservation reminder job registered")
	return nil
}

// RunReminderPass sends reminders for reservations starting inside the
// window [now+24h, now+24h15m). Split out of the cron closure so it can be
// exercised directly.
func RunReminderPass(ctx context.Context, database *db.DB, emailClient email.EmailSender, now time.Time, logger *zerolog.Logger) {
	windowStart := now.Add(reminderHoursBefore * time.Hour)
	windowEnd := windowStart.Add(reminderJobWindow)

	reservations, err := database.Queries.ListReservationsStartingBetween(ctx, db.ListReservationsStartingBetweenParams{
		StartTime: windowStart,
		EndTime:   windowEnd,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load reservations for reminder job")
		return
	}

	for _, reservation := range reservations {
		recipient, name, err := reminderRecipient(ctx, database.Queries, reservation)
		if err != nil {
			logger.Error().Err(err).Int64("reservation_id", reservation.ID).Msg("Failed to resolve reminder recipient")
			continue
		}
		if recipient == "" {
			continue
		}

		court, err := database.Queries.GetCourt(ctx, reservation.CourtID)
		if err != nil {
			logger.Error().Err(err).Int64("court_id", reservation.CourtID).Msg("Failed to load court for reminder")
			continue
		}

		body := formatReminderBody(name, court, reservation.BookedTime)
		if err := emailClient.Send(ctx, recipient, reminderSubject, body); err != nil {
			logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send reminder email")
			continue
		}
		logger.Info().Int64("reservation_id", reservation.ID).Msg("Reminder sent")
	}
}

// reminderRecipient resolves who to mail: the member's account email, or
// the contact address stored on a guest booking.
func reminderRecipient(ctx context.Context, q *db.Queries, reservation db.Reservation) (recipient, name string, err error) {
	if reservation.UserID.Valid {
		user, err := q.GetUserByID(ctx, reservation.UserID.Int64)
		if err != nil {
			return "", "", err
		}
		return strings.TrimSpace(user.Email), user.Username, nil
	}
	if reservation.UserEmail.Valid {
		return strings.TrimSpace(reservation.UserEmail.String), reservation.UserName.String, nil
	}
	return "", "", nil
}

func formatReminderBody(name string, court db.Court, slot time.Time) string {
	greeting := strings.TrimSpace(name)
	if greeting == "" {
		greeting = "player"
	}
	return fmt.Sprintf("Hi %s,\n\nYour court is booked for %s at %s.\nCourt: %s (court %d)\n\nSee you there!\n",
		greeting,
		slot.Format("Monday, 2 January 2006"),
		slot.Format("15:04"),
		court.Name, court.Number)
}
