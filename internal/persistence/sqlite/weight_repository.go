package sqlite

import (
	"context"
	"fmt"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
)

// WeightRepository implements persistence.WeightRepository using SQLite.
type WeightRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewWeightRepository creates the repository.
func NewWeightRepository(pool *ConnectionPool) *WeightRepository {
	return &WeightRepository{pool: pool, mapper: NewErrorMapper(), retry: NewRetryHelper(DefaultRetryConfig())}
}

// AddWeight inserts a weight entry.
func (r *WeightRepository) AddWeight(ctx context.Context, entry persistence.WeightLog) error {
	if entry.ID == "" || entry.ClientID == "" {
		return persistence.ErrConstraintViolation
	}
	const query = `
		INSERT INTO weight_logs (id, client_id, weight_kg, logged_on, created_at)
		VALUES (?, ?, ?, ?, ?)`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			entry.ID, entry.ClientID, entry.WeightKg, formatDate(entry.LoggedOn), formatTimestamp(entry.CreatedAt))
		return err
	})
}

// ListWeights returns the client's entries, most recent day first.
func (r *WeightRepository) ListWeights(ctx context.Context, clientID string) ([]persistence.WeightLog, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, client_id, weight_kg, logged_on, created_at
		FROM weight_logs
		WHERE client_id = ?
		ORDER BY logged_on DESC, id DESC`, clientID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	entries := make([]persistence.WeightLog, 0)
	for rows.Next() {
		var (
			entry     persistence.WeightLog
			loggedOn  string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.ClientID, &entry.WeightKg, &loggedOn, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if entry.LoggedOn, err = parseDate(loggedOn); err != nil {
			return nil, fmt.Errorf("failed to parse logged_on: %w", err)
		}
		if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return entries, nil
}

var _ persistence.WeightRepository = (*WeightRepository)(nil)
