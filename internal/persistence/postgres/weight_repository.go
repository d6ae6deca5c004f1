package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
)

const (
	insertWeightQuery = `INSERT INTO weight_logs (id, client_id, weight_kg, logged_on, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	listWeightsQuery = `SELECT id, client_id, weight_kg, logged_on, created_at
		FROM weight_logs
		WHERE client_id = $1
		ORDER BY logged_on DESC, id DESC`
)

type weightRow struct {
	ID        string    `db:"id"`
	ClientID  string    `db:"client_id"`
	WeightKg  float64   `db:"weight_kg"`
	LoggedOn  time.Time `db:"logged_on"`
	CreatedAt time.Time `db:"created_at"`
}

// WeightRepository implements persistence.WeightRepository on PostgreSQL.
type WeightRepository struct {
	db *sqlx.DB
}

// NewWeightRepository creates the repository.
func NewWeightRepository(db *sqlx.DB) *WeightRepository {
	return &WeightRepository{db: db}
}

// AddWeight inserts a weight entry.
func (r *WeightRepository) AddWeight(ctx context.Context, entry persistence.WeightLog) error {
	if entry.ID == "" || entry.ClientID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.db.ExecContext(ctx, insertWeightQuery,
		entry.ID, entry.ClientID, entry.WeightKg, dateOnly(entry.LoggedOn), entry.CreatedAt.UTC())
	return mapError(err)
}

// ListWeights returns the client's entries, most recent day first.
func (r *WeightRepository) ListWeights(ctx context.Context, clientID string) ([]persistence.WeightLog, error) {
	var rows []weightRow
	if err := r.db.SelectContext(ctx, &rows, listWeightsQuery, clientID); err != nil {
		return nil, mapError(err)
	}
	entries := make([]persistence.WeightLog, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, persistence.WeightLog{
			ID:        row.ID,
			ClientID:  row.ClientID,
			WeightKg:  row.WeightKg,
			LoggedOn:  dateOnly(row.LoggedOn),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return entries, nil
}

var _ persistence.WeightRepository = (*WeightRepository)(nil)
