package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
)

const (
	listSessionsQuery = `SELECT id, client_id, title, description, session_date, start_time, end_time, created_at
		FROM sessions
		WHERE client_id = $1 AND session_date BETWEEN $2 AND $3
		ORDER BY created_at ASC, id ASC`
	listSessionsOnQuery = `SELECT id, client_id, title, description, session_date, start_time, end_time, created_at
		FROM sessions
		WHERE session_date = $1
		ORDER BY client_id ASC, created_at ASC, id ASC`
	getSessionQuery = `SELECT id, client_id, title, description, session_date, start_time, end_time, created_at
		FROM sessions WHERE id = $1`
	insertSessionQuery = `INSERT INTO sessions (id, client_id, title, description, session_date, start_time, end_time, created_at)
		VALUES (:id, :client_id, :title, :description, :session_date, :start_time, :end_time, :created_at)`
	deleteSessionQuery = `DELETE FROM sessions WHERE id = $1`
)

type sessionRow struct {
	ID          string    `db:"id"`
	ClientID    string    `db:"client_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	SessionDate time.Time `db:"session_date"`
	StartTime   string    `db:"start_time"`
	EndTime     string    `db:"end_time"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r sessionRow) toModel() persistence.Session {
	return persistence.Session{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Title:       r.Title,
		Description: r.Description,
		Date:        dateOnly(r.SessionDate),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// SessionRepository implements persistence.SessionRepository on PostgreSQL.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListSessions returns the client's sessions dated from..to inclusive.
func (r *SessionRepository) ListSessions(ctx context.Context, clientID string, from, to time.Time) ([]persistence.Session, error) {
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, listSessionsQuery, clientID, dateOnly(from), dateOnly(to)); err != nil {
		return nil, mapError(err)
	}
	return toSessions(rows), nil
}

// ListSessionsOn returns every session dated day.
func (r *SessionRepository) ListSessionsOn(ctx context.Context, day time.Time) ([]persistence.Session, error) {
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, listSessionsOnQuery, dateOnly(day)); err != nil {
		return nil, mapError(err)
	}
	return toSessions(rows), nil
}

// GetSession returns the session with id.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	var row sessionRow
	if err := r.db.GetContext(ctx, &row, getSessionQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, mapError(err)
	}
	return row.toModel(), nil
}

// CreateSession inserts a session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.ClientID == "" {
		return persistence.ErrConstraintViolation
	}
	row := sessionRow{
		ID:          session.ID,
		ClientID:    session.ClientID,
		Title:       session.Title,
		Description: session.Description,
		SessionDate: dateOnly(session.Date),
		StartTime:   session.StartTime,
		EndTime:     session.EndTime,
		CreatedAt:   session.CreatedAt.UTC(),
	}
	if _, err := r.db.NamedExecContext(ctx, insertSessionQuery, row); err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateSession overwrites the non-nil columns of update.
func (r *SessionRepository) UpdateSession(ctx context.Context, id string, update persistence.SessionUpdate) error {
	query, args := buildSessionUpdate(id, update)
	if query == "" {
		_, err := r.GetSession(ctx, id)
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func buildSessionUpdate(id string, update persistence.SessionUpdate) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Date != nil {
		add("session_date", dateOnly(*update.Date))
	}
	if update.StartTime != nil {
		add("start_time", *update.StartTime)
	}
	if update.EndTime != nil {
		add("end_time", *update.EndTime)
	}
	if len(sets) == 0 {
		return "", nil
	}
	args = append(args, id)
	return fmt.Sprintf("UPDATE sessions SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)), args
}

// DeleteSession removes the session with id.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteSessionQuery, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func toSessions(rows []sessionRow) []persistence.Session {
	sessions := make([]persistence.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toModel())
	}
	return sessions
}

var _ persistence.SessionRepository = (*SessionRepository)(nil)
