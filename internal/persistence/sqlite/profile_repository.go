package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite.
type ProfileRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewProfileRepository creates the repository.
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{pool: pool, mapper: NewErrorMapper(), retry: NewRetryHelper(DefaultRetryConfig())}
}

// CreateProfile inserts a profile. Emails are stored lower-cased.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.ID == "" || strings.TrimSpace(profile.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if profile.Role == "" {
		profile.Role = persistence.RoleClient
	}

	const query = `
		INSERT INTO profiles (id, email, full_name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			profile.ID,
			normalizeEmail(profile.Email),
			profile.FullName,
			string(profile.Role),
			profile.PasswordHash,
			formatTimestamp(profile.CreatedAt),
		)
		return err
	})
}

// GetProfile returns the profile with id.
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	if id == "" {
		return persistence.Profile{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT id, email, full_name, role, password_hash, created_at FROM profiles WHERE id = ?`, id)
}

// GetProfileByEmail looks a profile up case-insensitively.
func (r *ProfileRepository) GetProfileByEmail(ctx context.Context, email string) (persistence.Profile, error) {
	if strings.TrimSpace(email) == "" {
		return persistence.Profile{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT id, email, full_name, role, password_hash, created_at FROM profiles WHERE email = ?`, normalizeEmail(email))
}

func (r *ProfileRepository) getOne(ctx context.Context, query string, arg string) (persistence.Profile, error) {
	profile, err := scanProfile(r.pool.DB().QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Profile{}, persistence.ErrNotFound
		}
		return persistence.Profile{}, r.mapper.MapError(err)
	}
	return profile, nil
}

// DeleteProfile removes the profile. Sessions, weights and coach links go with it.
func (r *ProfileRepository) DeleteProfile(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// foreign_keys may be off, so dependents are removed explicitly.
		for _, stmt := range []string{
			"DELETE FROM sessions WHERE client_id = ?",
			"DELETE FROM weight_logs WHERE client_id = ?",
			"DELETE FROM coach_clients WHERE client_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return r.mapper.MapError(err)
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// LinkCoach records that the coach follows the client. An existing link is kept.
func (r *ProfileRepository) LinkCoach(ctx context.Context, link persistence.CoachClient) error {
	if link.CoachID == "" || link.ClientID == "" {
		return persistence.ErrConstraintViolation
	}
	const query = `
		INSERT INTO coach_clients (coach_id, client_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (coach_id, client_id) DO NOTHING`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query, link.CoachID, link.ClientID, formatTimestamp(link.CreatedAt))
		return err
	})
}

// IsLinked reports whether the coach follows the client.
func (r *ProfileRepository) IsLinked(ctx context.Context, coachID, clientID string) (bool, error) {
	var one int
	err := r.pool.DB().QueryRowContext(ctx,
		"SELECT 1 FROM coach_clients WHERE coach_id = ? AND client_id = ?", coachID, clientID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return true, nil
}

var clientSortColumns = map[persistence.ClientSort]string{
	persistence.SortByFullName:  "p.full_name COLLATE NOCASE",
	persistence.SortByEmail:     "p.email",
	persistence.SortByCreatedAt: "p.created_at",
}

// ListClients returns the coach's clients with their latest weight.
func (r *ProfileRepository) ListClients(ctx context.Context, coachID string, opts persistence.ClientListOptions) ([]persistence.ClientSummary, error) {
	column, ok := clientSortColumns[opts.Sort]
	if !ok {
		column = clientSortColumns[persistence.SortByFullName]
	}
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.email, p.full_name, p.role, p.password_hash, p.created_at,
			(SELECT w.weight_kg FROM weight_logs w
				WHERE w.client_id = p.id
				ORDER BY w.logged_on DESC, w.id DESC LIMIT 1)
		FROM profiles p
		JOIN coach_clients cc ON cc.client_id = p.id
		WHERE cc.coach_id = ?
		ORDER BY %s %s, p.id ASC`, column, direction)

	rows, err := r.pool.DB().QueryContext(ctx, query, coachID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	clients := make([]persistence.ClientSummary, 0)
	for rows.Next() {
		var (
			summary   persistence.ClientSummary
			role      string
			createdAt string
			weight    sql.NullFloat64
		)
		if err := rows.Scan(&summary.ID, &summary.Email, &summary.FullName, &role, &summary.PasswordHash, &createdAt, &weight); err != nil {
			return nil, r.mapper.MapError(err)
		}
		summary.Role = persistence.Role(role)
		if summary.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if weight.Valid {
			kg := weight.Float64
			summary.CurrentWeightKg = &kg
		}
		clients = append(clients, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return clients, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (persistence.Profile, error) {
	var (
		profile   persistence.Profile
		role      string
		createdAt string
	)
	if err := row.Scan(&profile.ID, &profile.Email, &profile.FullName, &role, &profile.PasswordHash, &createdAt); err != nil {
		return persistence.Profile{}, err
	}
	profile.Role = persistence.Role(role)
	var err error
	if profile.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Profile{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return profile, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ persistence.ProfileRepository = (*ProfileRepository)(nil)
