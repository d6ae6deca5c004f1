package schedule

import (
	"context"
	"log/slog"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
)

// DragEvent is the end of a card drag from one day column to another.
type DragEvent struct {
	SourceDay      calendar.Date
	SessionID      string
	DestinationDay calendar.Date
}

// DragController moves sessions between days of a WeekView.
type DragController struct {
	store  SessionStore
	view   *WeekView
	logger *slog.Logger
}

// NewDragController wires a controller to the view it updates.
func NewDragController(store SessionStore, view *WeekView, logger *slog.Logger) *DragController {
	return &DragController{store: store, view: view, logger: defaultLogger(logger)}
}

// HandleDragEnd persists a cross-day move and then updates the view.
//
// Drops on the source day do nothing. When the store write fails the view is
// left as is and the error is logged and returned; no rollback is attempted.
// Order inside the destination day still follows CreatedAt, not drop position.
func (c *DragController) HandleDragEnd(ctx context.Context, event DragEvent) (bool, error) {
	if event.SessionID == "" || event.DestinationDay == event.SourceDay {
		return false, nil
	}

	logger := componentLogger(ctx, c.logger, "DragController", "HandleDragEnd",
		"session_id", event.SessionID,
		"from", event.SourceDay.String(),
		"to", event.DestinationDay.String(),
	)

	destination := event.DestinationDay
	if err := c.store.UpdateSession(ctx, event.SessionID, SessionPatch{Date: &destination}); err != nil {
		logger.ErrorContext(ctx, "failed to move session", "error", err, "error_kind", ErrorKind(err))
		return false, err
	}

	if session, ok := c.view.Find(event.SessionID); ok {
		session.Date = destination
		c.view.ApplyLocalMutation(session)
	}

	logger.InfoContext(ctx, "session moved")
	return true, nil
}
