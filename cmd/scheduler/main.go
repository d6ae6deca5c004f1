package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/REMSofram/plateforme-coach/internal/application"
	"github.com/REMSofram/plateforme-coach/internal/config"
	"github.com/REMSofram/plateforme-coach/internal/events"
	httptransport "github.com/REMSofram/plateforme-coach/internal/http"
	"github.com/REMSofram/plateforme-coach/internal/logging"
	"github.com/REMSofram/plateforme-coach/internal/persistence"
	"github.com/REMSofram/plateforme-coach/internal/persistence/postgres"
	"github.com/REMSofram/plateforme-coach/internal/persistence/sqlite"
	"github.com/REMSofram/plateforme-coach/internal/reminder"
)

func main() {
	level := new(slog.LevelVar)
	logger := logging.New(os.Stdout, logging.FormatJSON, level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Error("failed to load .env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	if err := run(ctx, cfg, level, logger); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, level *slog.LevelVar, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	sessions := application.NewSessionService(store.Sessions(), publisher, uuid.NewString, time.Now, logger)
	clients := application.NewClientService(store.Profiles(), store.Weights(), nil, uuid.NewString, time.Now, cfg.Location, logger)

	reminders := reminder.NewScheduler(sessions, sessions, cfg.Location, time.Now, logger)
	if err := reminders.Start(cfg.ReminderCron); err != nil {
		return err
	}
	defer reminders.Stop()

	if cfg.ConfigFile != "" {
		go func() {
			if err := config.Watch(ctx, cfg.ConfigFile, level, logger); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(cfg, sessions, clients, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("coach scheduler API listening", "addr", server.Addr, "db_driver", cfg.DBDriver, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func newHandler(cfg config.Config, sessions *application.SessionService, clients *application.ClientService, logger *slog.Logger) http.Handler {
	tokens := httptransport.NewTokenAuthority(cfg.JWTSecret, nil)
	return httptransport.NewRouter(httptransport.RouterConfig{
		Clients:    httptransport.NewClientHandler(clients, logger),
		Sessions:   httptransport.NewSessionHandler(sessions, clients, cfg.Location, logger),
		Auth:       httptransport.RequireCoach(tokens, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		return store, nil
	case config.DriverSQLite, "":
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// newPublisher connects to NATS when configured. Without a URL events are dropped.
func newPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		logger.Info("event publishing disabled")
		return events.NopPublisher{}, func() {}, nil
	}
	publisher, err := events.NewNatsPublisher(cfg.NATSURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to drain nats connection", "error", err)
		}
	}, nil
}
