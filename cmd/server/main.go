// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bsse/smashcourt/internal/api/auth"
	"github.com/bsse/smashcourt/internal/api/courts"
	"github.com/bsse/smashcourt/internal/api/reservations"
	"github.com/bsse/smashcourt/internal/api/tournaments"
	"github.com/bsse/smashcourt/internal/api/users"
	"github.com/bsse/smashcourt/internal/bookings"
	"github.com/bsse/smashcourt/internal/config"
	"github.com/bsse/smashcourt/internal/db"
	"github.com/bsse/smashcourt/internal/email"
	"github.com/bsse/smashcourt/internal/ratelimit"
	"github.com/bsse/smashcourt/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	if cfg.App.SecretKey == "" {
		log.Fatal().Msg("APP_SECRET_KEY is required")
	}

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	var mailer email.EmailSender
	if cfg.Email.AccessKeyID != "" && cfg.Email.SecretAccessKey != "" {
		client, err := email.NewSESClient(cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.Sender)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SES client")
		}
		mailer = client
	} else {
		log.Warn().Msg("Email disabled: AWS credentials not configured")
	}

	secret := []byte(cfg.App.SecretKey)
	rules := bookings.Rules{
		DailyCap:   cfg.Booking.DailyCapHours,
		WeeklyCap:  cfg.Booking.WeeklyCapHours,
		CutoffHour: cfg.Booking.CutoffHour,
	}

	auth.InitHandlers(database, secret, ratelimit.NewLimiter(nil))
	users.InitHandlers(database)
	courts.InitHandlers(database)
	tournaments.InitHandlers(database)
	reservations.InitHandlers(database, mailer, rules)

	if cfg.Features.EnableReminders {
		if err := scheduler.Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize scheduler")
		}
		if err := scheduler.RegisterReminderJobs(database, mailer); err != nil {
			log.Fatal().Err(err).Msg("Failed to register reminder jobs")
		}
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}()
	}

	server := newServer(cfg, secret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
