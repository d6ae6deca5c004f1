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
	insertProfileQuery = `INSERT INTO profiles (id, email, full_name, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	getProfileQuery        = `SELECT id, email, full_name, role, password_hash, created_at FROM profiles WHERE id = $1`
	getProfileByEmailQuery = `SELECT id, email, full_name, role, password_hash, created_at FROM profiles WHERE email = $1`
	deleteProfileQuery     = `DELETE FROM profiles WHERE id = $1`
	linkCoachQuery         = `INSERT INTO coach_clients (coach_id, client_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (coach_id, client_id) DO NOTHING`
	isLinkedQuery   = `SELECT EXISTS (SELECT 1 FROM coach_clients WHERE coach_id = $1 AND client_id = $2)`
	listClientsBase = `SELECT p.id, p.email, p.full_name, p.role, p.password_hash, p.created_at,
			(SELECT w.weight_kg FROM weight_logs w
				WHERE w.client_id = p.id
				ORDER BY w.logged_on DESC, w.id DESC LIMIT 1) AS current_weight_kg
		FROM profiles p
		JOIN coach_clients cc ON cc.client_id = p.id
		WHERE cc.coach_id = $1`
)

var clientSortColumns = map[persistence.ClientSort]string{
	persistence.SortByFullName:  "LOWER(p.full_name)",
	persistence.SortByEmail:     "p.email",
	persistence.SortByCreatedAt: "p.created_at",
}

type profileRow struct {
	ID              string          `db:"id"`
	Email           string          `db:"email"`
	FullName        string          `db:"full_name"`
	Role            string          `db:"role"`
	PasswordHash    string          `db:"password_hash"`
	CreatedAt       time.Time       `db:"created_at"`
	CurrentWeightKg sql.NullFloat64 `db:"current_weight_kg"`
}

func (r profileRow) toModel() persistence.Profile {
	return persistence.Profile{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		Role:         persistence.Role(r.Role),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// ProfileRepository implements persistence.ProfileRepository on PostgreSQL.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateProfile inserts a profile with a lower-cased email.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.ID == "" || strings.TrimSpace(profile.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if profile.Role == "" {
		profile.Role = persistence.RoleClient
	}
	_, err := r.db.ExecContext(ctx, insertProfileQuery,
		profile.ID,
		normalizeEmail(profile.Email),
		profile.FullName,
		string(profile.Role),
		profile.PasswordHash,
		profile.CreatedAt.UTC(),
	)
	return mapError(err)
}

// GetProfile returns the profile with id.
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	return r.get(ctx, getProfileQuery, id)
}

// GetProfileByEmail looks a profile up case-insensitively.
func (r *ProfileRepository) GetProfileByEmail(ctx context.Context, email string) (persistence.Profile, error) {
	return r.get(ctx, getProfileByEmailQuery, normalizeEmail(email))
}

func (r *ProfileRepository) get(ctx context.Context, query, arg string) (persistence.Profile, error) {
	var row profileRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Profile{}, persistence.ErrNotFound
		}
		return persistence.Profile{}, mapError(err)
	}
	return row.toModel(), nil
}

// DeleteProfile removes the profile; foreign keys cascade to dependents.
func (r *ProfileRepository) DeleteProfile(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteProfileQuery, id)
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

// LinkCoach records a coach-client link. An existing link is kept.
func (r *ProfileRepository) LinkCoach(ctx context.Context, link persistence.CoachClient) error {
	if link.CoachID == "" || link.ClientID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.db.ExecContext(ctx, linkCoachQuery, link.CoachID, link.ClientID, link.CreatedAt.UTC())
	return mapError(err)
}

// IsLinked reports whether the coach follows the client.
func (r *ProfileRepository) IsLinked(ctx context.Context, coachID, clientID string) (bool, error) {
	var linked bool
	if err := r.db.GetContext(ctx, &linked, isLinkedQuery, coachID, clientID); err != nil {
		return false, mapError(err)
	}
	return linked, nil
}

// ListClients returns the coach's clients with their latest weight.
func (r *ProfileRepository) ListClients(ctx context.Context, coachID string, opts persistence.ClientListOptions) ([]persistence.ClientSummary, error) {
	var rows []profileRow
	if err := r.db.SelectContext(ctx, &rows, listClientsQuery(opts), coachID); err != nil {
		return nil, mapError(err)
	}

	clients := make([]persistence.ClientSummary, 0, len(rows))
	for _, row := range rows {
		summary := persistence.ClientSummary{Profile: row.toModel()}
		if row.CurrentWeightKg.Valid {
			kg := row.CurrentWeightKg.Float64
			summary.CurrentWeightKg = &kg
		}
		clients = append(clients, summary)
	}
	return clients, nil
}

func listClientsQuery(opts persistence.ClientListOptions) string {
	column, ok := clientSortColumns[opts.Sort]
	if !ok {
		column = clientSortColumns[persistence.SortByFullName]
	}
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}
	return fmt.Sprintf("%s\n\t\tORDER BY %s %s, p.id ASC", listClientsBase, column, direction)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ persistence.ProfileRepository = (*ProfileRepository)(nil)
