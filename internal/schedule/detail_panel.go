package schedule

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidateClock accepts an empty value or a HH:MM time of day. Seconds are dropped.
func ValidateClock(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true
	}
	if len(value) == len("15:04:05") && value[5] == ':' {
		value = value[:5]
	}
	return value, clockPattern.MatchString(value)
}

// DetailPanel tracks the selected session and writes its edits.
//
// Each edit is written immediately with only the changed field. Delete needs a
// request followed by a confirmation; duplicate does not.
type DetailPanel struct {
	store      SessionStore
	view       *WeekView
	duplicator *Duplicator
	logger     *slog.Logger

	mu            sync.Mutex
	selected      *Session
	pendingDelete bool
}

// NewDetailPanel wires a panel to the view it keeps in sync.
func NewDetailPanel(store SessionStore, view *WeekView, duplicator *Duplicator, logger *slog.Logger) *DetailPanel {
	if duplicator == nil {
		duplicator = NewDuplicator(store, view, logger)
	}
	return &DetailPanel{store: store, view: view, duplicator: duplicator, logger: defaultLogger(logger)}
}

// Selected returns the selected session, if any.
func (p *DetailPanel) Selected() (Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == nil {
		return Session{}, false
	}
	return *p.selected, true
}

// PendingDelete reports whether a delete is waiting for confirmation.
func (p *DetailPanel) PendingDelete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingDelete
}

// Toggle selects session, or deselects it when it is already selected.
// It reports whether a session is selected afterwards.
func (p *DetailPanel) Toggle(session Session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pendingDelete = false
	if p.selected != nil && p.selected.ID == session.ID {
		p.selected = nil
		return false
	}
	selected := session
	p.selected = &selected
	return true
}

// Select makes session the selection without toggling.
func (p *DetailPanel) Select(session Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	selected := session
	p.selected = &selected
	p.pendingDelete = false
}

// sync replaces the selected copy when session is the selection.
func (p *DetailPanel) sync(session Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected != nil && p.selected.ID == session.ID {
		selected := session
		p.selected = &selected
	}
}

// Close deselects.
func (p *DetailPanel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = nil
	p.pendingDelete = false
}

// EditTitle writes a new title for the selected session.
func (p *DetailPanel) EditTitle(ctx context.Context, title string) error {
	return p.edit(ctx, "title", SessionPatch{Title: &title})
}

// EditDescription writes a new description for the selected session.
func (p *DetailPanel) EditDescription(ctx context.Context, description string) error {
	return p.edit(ctx, "description", SessionPatch{Description: &description})
}

// EditStartTime writes the start time. An empty value clears it.
func (p *DetailPanel) EditStartTime(ctx context.Context, value string) error {
	normalized, ok := ValidateClock(value)
	if !ok {
		vErr := &ValidationError{}
		vErr.add("start_time", "start time must be HH:MM")
		return vErr
	}
	return p.edit(ctx, "start_time", SessionPatch{StartTime: &normalized})
}

// EditEndTime writes the end time. An empty value clears it.
func (p *DetailPanel) EditEndTime(ctx context.Context, value string) error {
	normalized, ok := ValidateClock(value)
	if !ok {
		vErr := &ValidationError{}
		vErr.add("end_time", "end time must be HH:MM")
		return vErr
	}
	return p.edit(ctx, "end_time", SessionPatch{EndTime: &normalized})
}

func (p *DetailPanel) edit(ctx context.Context, field string, patch SessionPatch) error {
	current, ok := p.Selected()
	if !ok {
		return ErrNoSelection
	}

	logger := componentLogger(ctx, p.logger, "DetailPanel", "Edit",
		"session_id", current.ID,
		"field", field,
	)

	if err := p.store.UpdateSession(ctx, current.ID, patch); err != nil {
		logger.ErrorContext(ctx, "failed to save session field", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	p.mu.Lock()
	if p.selected != nil && p.selected.ID == current.ID {
		updated := patch.Apply(*p.selected)
		p.selected = &updated
	}
	p.mu.Unlock()

	if p.view != nil {
		if session, ok := p.view.Find(current.ID); ok {
			p.view.ApplyLocalMutation(patch.Apply(session))
		}
	}

	logger.DebugContext(ctx, "session field saved")
	return nil
}

// RequestDelete starts the two-phase delete of the selected session.
func (p *DetailPanel) RequestDelete() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == nil {
		return ErrNoSelection
	}
	p.pendingDelete = true
	return nil
}

// CancelDelete abandons a pending delete and keeps the selection.
func (p *DetailPanel) CancelDelete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingDelete = false
}

// ConfirmDelete deletes the selected session after RequestDelete.
// A session already missing from the store counts as deleted. On success the
// session leaves the view and the panel is deselected.
func (p *DetailPanel) ConfirmDelete(ctx context.Context) (err error) {
	p.mu.Lock()
	if p.selected == nil {
		p.mu.Unlock()
		return ErrNoSelection
	}
	if !p.pendingDelete {
		p.mu.Unlock()
		return ErrNoPendingDelete
	}
	id := p.selected.ID
	p.pendingDelete = false
	p.mu.Unlock()

	logger := componentLogger(ctx, p.logger, "DetailPanel", "ConfirmDelete", "session_id", id)

	if err = p.store.DeleteSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if p.view != nil {
		p.view.RemoveLocal(id)
	}

	p.mu.Lock()
	if p.selected != nil && p.selected.ID == id {
		p.selected = nil
	}
	p.mu.Unlock()

	logger.InfoContext(ctx, "session deleted")
	return nil
}

// Duplicate copies the selected session following policy. No confirmation is needed.
func (p *DetailPanel) Duplicate(ctx context.Context, policy RecurrencePolicy) ([]Session, error) {
	current, ok := p.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	return p.duplicator.Duplicate(ctx, current, policy)
}
