package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
)

const sessionColumns = "id, client_id, title, description, session_date, start_time, end_time, created_at"

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSessionRepository creates the repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool, mapper: NewErrorMapper(), retry: NewRetryHelper(DefaultRetryConfig())}
}

// ListSessions returns the client's sessions dated from..to inclusive,
// ordered by created_at then id.
func (r *SessionRepository) ListSessions(ctx context.Context, clientID string, from, to time.Time) ([]persistence.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE client_id = ? AND session_date >= ? AND session_date <= ?
		ORDER BY created_at ASC, id ASC`
	return r.query(ctx, query, clientID, formatDate(from), formatDate(to))
}

// ListSessionsOn returns every session dated day, across clients.
func (r *SessionRepository) ListSessionsOn(ctx context.Context, day time.Time) ([]persistence.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE session_date = ?
		ORDER BY client_id ASC, created_at ASC, id ASC`
	return r.query(ctx, query, formatDate(day))
}

func (r *SessionRepository) query(ctx context.Context, query string, args ...any) ([]persistence.Session, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	sessions := make([]persistence.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// GetSession returns the session with id.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// CreateSession inserts a session. The caller assigns ID and CreatedAt.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.ClientID == "" {
		return persistence.ErrConstraintViolation
	}
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			session.ID,
			session.ClientID,
			session.Title,
			session.Description,
			formatDate(session.Date),
			session.StartTime,
			session.EndTime,
			formatTimestamp(session.CreatedAt),
		)
		return err
	})
}

// UpdateSession overwrites the non-nil columns of update.
func (r *SessionRepository) UpdateSession(ctx context.Context, id string, update persistence.SessionUpdate) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Date != nil {
		sets = append(sets, "session_date = ?")
		args = append(args, formatDate(*update.Date))
	}
	if update.StartTime != nil {
		sets = append(sets, "start_time = ?")
		args = append(args, *update.StartTime)
	}
	if update.EndTime != nil {
		sets = append(sets, "end_time = ?")
		args = append(args, *update.EndTime)
	}

	if len(sets) == 0 {
		_, err := r.GetSession(ctx, id)
		return err
	}

	query := "UPDATE sessions SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteSession removes the session with id.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session   persistence.Session
		date      string
		createdAt string
	)
	if err := row.Scan(
		&session.ID,
		&session.ClientID,
		&session.Title,
		&session.Description,
		&date,
		&session.StartTime,
		&session.EndTime,
		&createdAt,
	); err != nil {
		return persistence.Session{}, err
	}

	var err error
	if session.Date, err = parseDate(date); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse session_date: %w", err)
	}
	if session.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return session, nil
}

var _ persistence.SessionRepository = (*SessionRepository)(nil)
