// Package postgres stores coach data in PostgreSQL through sqlx and the pgx
// database/sql driver.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
	"github.com/REMSofram/plateforme-coach/internal/persistence/migration"
)

// PostgreSQL error codes mapped to persistence sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// Store is the PostgreSQL implementation of persistence.Store.
type Store struct {
	db       *sqlx.DB
	profiles *ProfileRepository
	sessions *SessionRepository
	weights  *WeightRepository
}

// Open connects with the pgx driver and applies the bundled migrations.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	manager, err := migration.NewManager(db.DB, migration.DialectPostgres, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := manager.Run(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres database: %w", err)
	}
	return NewStore(db), nil
}

// NewStore builds the repositories over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:       db,
		profiles: NewProfileRepository(db),
		sessions: NewSessionRepository(db),
		weights:  NewWeightRepository(db),
	}
}

// Profiles implements persistence.Store.
func (s *Store) Profiles() persistence.ProfileRepository { return s.profiles }

// Sessions implements persistence.Store.
func (s *Store) Sessions() persistence.SessionRepository { return s.sessions }

// Weights implements persistence.Store.
func (s *Store) Weights() persistence.WeightRepository { return s.weights }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", persistence.ErrForeignKeyViolation, pgErr.ConstraintName)
		case codeCheckViolation, codeNotNullViolation:
			return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.ConstraintName)
		}
	}
	return err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ persistence.Store = (*Store)(nil)
