package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
)

// Board is the scheduler state of one client page. It owns the week view and
// the controllers acting on it; callers render from its accessors.
//
// Every operation returns its error and also queues a Notice for display.
type Board struct {
	store    SessionStore
	clientID string
	logger   *slog.Logger

	view  *WeekView
	drag  *DragController
	panel *DetailPanel

	mu      sync.Mutex
	notices []Notice
}

// NewBoard builds the scheduler for clientID positioned on the week of today.
func NewBoard(store SessionStore, clientID string, today calendar.Date, logger *slog.Logger) *Board {
	logger = defaultLogger(logger).With("client_id", clientID)
	view := NewWeekView(store, clientID, today, logger)
	return &Board{
		store:    store,
		clientID: clientID,
		logger:   logger,
		view:     view,
		drag:     NewDragController(store, view, logger),
		panel:    NewDetailPanel(store, view, NewDuplicator(store, view, logger), logger),
	}
}

// View exposes the week view for rendering.
func (b *Board) View() *WeekView { return b.view }

// Panel exposes the selection state for rendering.
func (b *Board) Panel() *DetailPanel { return b.panel }

// DrainNotices returns the queued notices and clears the queue.
func (b *Board) DrainNotices() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}

func (b *Board) report(err error) error {
	if err == nil {
		return nil
	}
	b.mu.Lock()
	b.notices = append(b.notices, NoticeFor(err))
	b.mu.Unlock()
	return err
}

func (b *Board) inform(format string, args ...any) {
	b.mu.Lock()
	b.notices = append(b.notices, Notice{Level: NoticeInfo, Message: fmt.Sprintf(format, args...)})
	b.mu.Unlock()
}

// Refresh reloads the current week.
func (b *Board) Refresh(ctx context.Context) error {
	return b.report(b.view.Refresh(ctx))
}

// GoTo moves to the week containing day.
func (b *Board) GoTo(ctx context.Context, day calendar.Date) error {
	return b.report(b.view.SetWindow(ctx, day))
}

// NextWeek moves one week forward.
func (b *Board) NextWeek(ctx context.Context) error {
	return b.report(b.view.ShiftWeek(ctx, 1))
}

// PreviousWeek moves one week back.
func (b *Board) PreviousWeek(ctx context.Context) error {
	return b.report(b.view.ShiftWeek(ctx, -1))
}

// AddSession creates a placeholder session on day and selects it.
func (b *Board) AddSession(ctx context.Context, day calendar.Date) (Session, error) {
	fields := SessionFields{ClientID: b.clientID, Date: day}.WithDefaults()
	session, err := b.store.CreateSession(ctx, fields)
	if err != nil {
		componentLogger(ctx, b.logger, "Board", "AddSession", "date", day.String()).
			ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
		return Session{}, b.report(err)
	}
	b.view.ApplyLocalMutation(session)
	b.panel.Select(session)
	return session, nil
}

// Move handles a card dropped on another day.
func (b *Board) Move(ctx context.Context, event DragEvent) (bool, error) {
	moved, err := b.drag.HandleDragEnd(ctx, event)
	if err != nil {
		return false, b.report(err)
	}
	if moved {
		if session, ok := b.view.Find(event.SessionID); ok {
			b.panel.sync(session)
		}
	}
	return moved, nil
}

// Click toggles the selection of the session card with id.
func (b *Board) Click(id string) (bool, error) {
	session, ok := b.view.Find(id)
	if !ok {
		return false, b.report(ErrSessionNotFound)
	}
	return b.panel.Toggle(session), nil
}

// Close deselects.
func (b *Board) Close() { b.panel.Close() }

// EditTitle writes the selected session title.
func (b *Board) EditTitle(ctx context.Context, value string) error {
	return b.report(b.panel.EditTitle(ctx, value))
}

// EditDescription writes the selected session description.
func (b *Board) EditDescription(ctx context.Context, value string) error {
	return b.report(b.panel.EditDescription(ctx, value))
}

// EditStartTime writes the selected session start time.
func (b *Board) EditStartTime(ctx context.Context, value string) error {
	return b.report(b.panel.EditStartTime(ctx, value))
}

// EditEndTime writes the selected session end time.
func (b *Board) EditEndTime(ctx context.Context, value string) error {
	return b.report(b.panel.EditEndTime(ctx, value))
}

// RequestDelete asks for confirmation before deleting the selection.
func (b *Board) RequestDelete() error {
	if err := b.panel.RequestDelete(); err != nil {
		return b.report(err)
	}
	b.inform("Confirmez la suppression de la séance.")
	return nil
}

// ConfirmDelete deletes the selection after RequestDelete.
func (b *Board) ConfirmDelete(ctx context.Context) error {
	if err := b.panel.ConfirmDelete(ctx); err != nil {
		return b.report(err)
	}
	b.inform("Séance supprimée.")
	return nil
}

// CancelDelete abandons a pending delete.
func (b *Board) CancelDelete() { b.panel.CancelDelete() }

// Duplicate copies the selection following policy.
func (b *Board) Duplicate(ctx context.Context, policy RecurrencePolicy) ([]Session, error) {
	created, err := b.panel.Duplicate(ctx, policy)
	if err != nil {
		return created, b.report(err)
	}
	b.inform("%d séance(s) créée(s).", len(created))
	return created, nil
}
