package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/database"
	"github.com/tusktask/tusktask/internal/logging"
	"github.com/tusktask/tusktask/internal/scheduler"
	"github.com/tusktask/tusktask/internal/server"
	"github.com/tusktask/tusktask/internal/services"
	"github.com/tusktask/tusktask/internal/storage"
)

var (
	serveSkipMigrate bool
	serveNoJobs      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and background jobs",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveSkipMigrate, "skip-migrate", false, "do not migrate the schema on startup")
	serveCmd.Flags().BoolVar(&serveNoJobs, "no-jobs", false, "do not run reminder and cleanup jobs")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}

	if !serveSkipMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	// ERROR+ records also go to system_logs, batched
	dbLogHandler := logging.NewDBHandler(db, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout),
		dbLogHandler,
	)))

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	bucket, err := storage.NewLocalBucket(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		return err
	}

	app, svc := server.New(cfg, server.Deps{
		DB:       db,
		Mailer:   newMailer(cfg),
		Bucket:   bucket,
		Verifier: services.NewDefaultOAuthVerifier(cfg.AppleClientIDs, cfg.GoogleClientIDs),
	})

	jobs := scheduler.New(time.UTC)
	if !serveNoJobs {
		if _, err := jobs.Add("reminders", cfg.ReminderSchedule, svc.Reminders.Job(30*time.Second)); err != nil {
			return err
		}
		if _, err := jobs.Add("log-cleanup", "@daily", logging.CleanupJob(db, cfg.LogRetentionDays)); err != nil {
			return err
		}
		jobs.Start()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "version", Version)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-quit:
		slog.Info("shutting down server...")
	case err := <-listenErr:
		if err != nil {
			slog.Error("server failed to start", "error", err)
		}
	}

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	jobs.Stop()
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// newMailer sends through SMTP when a host is configured and logs
// otherwise.
func newMailer(cfg *config.Config) services.Mailer {
	if cfg.SMTPHost == "" {
		if cfg.IsProduction() {
			slog.Warn("SMTP_HOST not set, mail will only be logged")
		}
		return services.LogMailer{}
	}
	return services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
}
