package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	source   fs.FS
	logger   *slog.Logger
}

// NewManager returns a manager over the bundled files for dialect.
func NewManager(db *sql.DB, dialect Dialect, logger *slog.Logger) (*Manager, error) {
	source, err := Source(dialect)
	if err != nil {
		return nil, err
	}
	return NewManagerWithSource(db, dialect, source, logger), nil
}

// NewManagerWithSource returns a manager reading migrations from source.
func NewManagerWithSource(db *sql.DB, dialect Dialect, source fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  NewScanner(),
		executor: NewExecutor(db, dialect),
		source:   source,
		logger:   logger.With("component", "migration", "dialect", string(dialect)),
	}
}

// Run applies every pending migration. It stops at the first failure; earlier
// migrations stay applied.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "schema version", "current", status.CurrentVersion, "pending", status.PendingCount)

	for i, migration := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, status.PendingCount),
		)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "file", migration.FilePath, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
	}

	if status.PendingCount > 0 {
		m.logger.InfoContext(ctx, "migrations applied", "count", status.PendingCount, "duration", time.Since(started))
	}
	return nil
}

// Status compares the files with schema_migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.scanner.Scan(m.source)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return Status{}, err
	}

	byVersion := make(map[string]Migration, len(available))
	for _, migration := range available {
		byVersion[migration.Version] = migration
	}

	appliedSet := make(map[string]struct{}, len(applied))
	for _, row := range applied {
		file, ok := byVersion[row.Version]
		if !ok {
			return Status{}, NewMigrationError(row.Version, "", "validate sequence",
				fmt.Errorf("%w: version %s is applied but has no file", ErrVersionConflict, row.Version))
		}
		if row.Checksum != "" && row.Checksum != file.Checksum {
			return Status{}, NewMigrationError(row.Version, file.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		appliedSet[row.Version] = struct{}{}
	}

	status := Status{Applied: applied}
	for _, migration := range available {
		if _, ok := appliedSet[migration.Version]; !ok {
			status.Pending = append(status.Pending, migration)
		}
	}
	status.PendingCount = len(status.Pending)
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}

func sortApplied(applied []AppliedMigration) {
	sort.Slice(applied, func(i, j int) bool {
		return versionNumber(applied[i].Version) < versionNumber(applied[j].Version)
	})
}
