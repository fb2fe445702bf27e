package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/robfig/cron"
	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/ai"
	"github.com/applypilot/applypilot-api/internal/config"
	"github.com/applypilot/applypilot-api/internal/handlers"
	"github.com/applypilot/applypilot-api/internal/middleware"
	"github.com/applypilot/applypilot-api/internal/migration"
	"github.com/applypilot/applypilot-api/internal/notification"
	"github.com/applypilot/applypilot-api/internal/quota"
	"github.com/applypilot/applypilot-api/internal/repository"
	"github.com/applypilot/applypilot-api/internal/routes"
	"github.com/applypilot/applypilot-api/internal/scheduler"
	"github.com/applypilot/applypilot-api/internal/timeline"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sql.DB
	logger zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Local development reads secrets from .env; absence is fine elsewhere.
	if err := godotenv.Load(); err == nil {
		logger.Debug().Msg("loaded .env file")
	}

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}

	router, sweeper := app.buildHandlers(logger)

	// Hourly reminder sweep.
	schedule := cron.New()
	if err := schedule.AddFunc(cfg.Scheduler.SweepSpec, func() {
		sweeper.RunOnce(context.Background())
	}); err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.Scheduler.SweepSpec).Msg("invalid sweep schedule")
	}
	schedule.Start()

	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	app.startServer(corsHandler, schedule, logger)

	logger.Info().Msg("Application terminated.")
}

// buildHandlers wires repositories, services, and handlers, returning the
// router plus the reminder sweeper for the cron schedule.
func (app *application) buildHandlers(logger zerolog.Logger) (http.Handler, *scheduler.Sweeper) {
	// Repositories
	userRepo := repository.NewUserRepository(app.db)
	appRepo := repository.NewApplicationRepository(app.db)
	eventRepo := repository.NewEventRepository(app.db)
	notificationRepo := repository.NewNotificationRepository(app.db)
	aiRequestRepo := repository.NewAIRequestRepository(app.db)
	resumeRepo := repository.NewResumeRepository(app.db)
	coverLetterRepo := repository.NewCoverLetterRepository(app.db)

	// Optional email mirror for notifications.
	var notifiers []notification.Notifier
	if app.config.Email.SMTPHost != "" {
		emailNotifier, err := notification.NewEmailNotifier(app.config.Email, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure email notifier")
		}
		notifiers = append(notifiers, emailNotifier)
	}

	// Services
	notificationService := notification.NewService(notificationRepo, logger, notifiers...)
	timelineService := timeline.NewService(appRepo, eventRepo, notificationService, logger)
	tracker := quota.NewTracker(aiRequestRepo, app.config.AI.DailyQuota)
	aiClient := ai.NewClient(app.config.AI, logger)
	aiService := ai.NewService(aiClient, aiRequestRepo, resumeRepo, tracker, logger)
	sweeper := scheduler.NewSweeper(appRepo, notificationService, logger)

	router := routes.NewRouter(app.db, routes.Handlers{
		Auth:         handlers.NewAuthHandler(userRepo, app.config.JWTSecret, logger),
		Application:  handlers.NewApplicationHandler(appRepo, timelineService, logger),
		Event:        handlers.NewEventHandler(appRepo, eventRepo, timelineService, aiService, logger),
		Notification: handlers.NewNotificationHandler(notificationService, logger),
		AI:           handlers.NewAIHandler(aiService, coverLetterRepo, logger),
		Resume:       handlers.NewResumeHandler(resumeRepo, logger),
		CoverLetter:  handlers.NewCoverLetterHandler(coverLetterRepo, logger),
		Dashboard:    handlers.NewDashboardHandler(appRepo, tracker, logger),
	})

	return router, sweeper
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, schedule *cron.Cron, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	schedule.Stop()
	logger.Info().Msg("Reminder schedule stopped.")
}
