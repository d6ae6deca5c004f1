package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/application"
	"github.com/REMSofram/plateforme-coach/internal/config"
	"github.com/REMSofram/plateforme-coach/internal/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore_SQLiteFile(t *testing.T) {
	t.Parallel()

	cfg := config.Config{DBDriver: config.DriverSQLite, SQLiteDSN: filepath.Join(t.TempDir(), "coach.db")}
	store, err := openStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("openStore returned error: %v", err)
	}
	defer store.Close()

	if _, err := store.Sessions().ListSessionsOn(context.Background(), time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("expected migrated schema, got %v", err)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := openStore(context.Background(), config.Config{DBDriver: "mysql"}, quietLogger()); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestNewPublisher_DisabledWithoutURL(t *testing.T) {
	t.Parallel()

	publisher, closeFn, err := newPublisher(config.Config{}, quietLogger())
	if err != nil {
		t.Fatalf("newPublisher returned error: %v", err)
	}
	defer closeFn()
	if _, ok := publisher.(events.NopPublisher); !ok {
		t.Fatalf("expected NopPublisher, got %T", publisher)
	}
}

func TestNewHandler_ProtectsRoutes(t *testing.T) {
	t.Parallel()

	cfg := config.Config{DBDriver: config.DriverSQLite, SQLiteDSN: filepath.Join(t.TempDir(), "coach.db"), JWTSecret: "secret", Location: time.UTC}
	store, err := openStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("openStore returned error: %v", err)
	}
	defer store.Close()

	logger := quietLogger()
	sessions := application.NewSessionService(store.Sessions(), nil, nil, nil, logger)
	clients := application.NewClientService(store.Profiles(), store.Weights(), nil, nil, nil, time.UTC, logger)
	handler := newHandler(cfg, sessions, clients, logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthz to be public, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
