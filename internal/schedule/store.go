package schedule

import (
	"context"
	"log/slog"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/logging"
)

// SessionStore is the remote data store surface the scheduler relies on.
//
// Failed calls return errors matching ErrStoreUnavailable. Nothing is retried.
type SessionStore interface {
	// ListSessions returns the client's sessions dated within [from, to].
	ListSessions(ctx context.Context, clientID string, from, to calendar.Date) ([]Session, error)
	// CreateSession persists one session; the store assigns ID and CreatedAt.
	CreateSession(ctx context.Context, fields SessionFields) (Session, error)
	// CreateSessionsBatch persists several sessions without atomicity. A short
	// result is reported as *PartialBatchFailure.
	CreateSessionsBatch(ctx context.Context, fields []SessionFields) ([]Session, error)
	// UpdateSession writes the patch fields. Last write wins.
	UpdateSession(ctx context.Context, id string, patch SessionPatch) error
	// DeleteSession removes the session. A missing id yields ErrSessionNotFound.
	DeleteSession(ctx context.Context, id string) error
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func componentLogger(ctx context.Context, base *slog.Logger, component, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	pairs := []any{"component", component}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	return logger.With(append(pairs, attrs...)...)
}
