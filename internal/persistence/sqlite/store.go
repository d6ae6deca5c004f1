package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
	"github.com/REMSofram/plateforme-coach/internal/persistence/migration"
)

const (
	dateLayout = "2006-01-02"
	// timestampLayout is fixed width so TEXT columns sort chronologically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(value string) (time.Time, error) {
	if len(value) > len(dateLayout) {
		value = value[:len(dateLayout)]
	}
	return time.ParseInLocation(dateLayout, value, time.UTC)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Parse(time.RFC3339Nano, value)
	}
	return t, nil
}

// Store is the SQLite implementation of persistence.Store.
type Store struct {
	pool     *ConnectionPool
	profiles *ProfileRepository
	sessions *SessionRepository
	weights  *WeightRepository
}

// Open connects to the database and applies the bundled migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}

	manager, err := migration.NewManager(pool.DB(), migration.DialectSQLite, logger)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	if err := manager.Run(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}

	return NewStore(pool), nil
}

// NewStore builds the repositories over an already migrated pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		pool:     pool,
		profiles: NewProfileRepository(pool),
		sessions: NewSessionRepository(pool),
		weights:  NewWeightRepository(pool),
	}
}

// Pool exposes the connection pool.
func (s *Store) Pool() *ConnectionPool { return s.pool }

// Profiles implements persistence.Store.
func (s *Store) Profiles() persistence.ProfileRepository { return s.profiles }

// Sessions implements persistence.Store.
func (s *Store) Sessions() persistence.SessionRepository { return s.sessions }

// Weights implements persistence.Store.
func (s *Store) Weights() persistence.WeightRepository { return s.weights }

// Close releases the database.
func (s *Store) Close() error { return s.pool.Close() }

var _ persistence.Store = (*Store)(nil)
