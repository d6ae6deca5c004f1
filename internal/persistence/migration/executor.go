package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Executor applies migrations and tracks them in schema_migrations.
type Executor struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewExecutor creates an executor for db.
func NewExecutor(db *sql.DB, dialect Dialect) *Executor {
	return &Executor{db: db, dialect: dialect, now: time.Now}
}

// InitializeVersionTable creates schema_migrations when missing.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms BIGINT NOT NULL DEFAULT 0
		)`
	if _, err := e.db.ExecContext(ctx, query); err != nil {
		return NewDatabaseError("", query, "create schema_migrations table", err)
	}
	return nil
}

// ExecuteMigration runs every statement of m and records it in one transaction.
func (e *Executor) ExecuteMigration(ctx context.Context, m Migration) (err error) {
	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		return NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("%w: no statements", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError(m.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return NewDatabaseError(m.Version, stmt, fmt.Sprintf("execute statement %d", i+1), err)
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (%s, %s, %s, %s)",
		e.dialect.placeholder(1), e.dialect.placeholder(2), e.dialect.placeholder(3), e.dialect.placeholder(4),
	)
	finished := e.now()
	if _, err = tx.ExecContext(ctx, insert, m.Version, finished.UTC().Format(time.RFC3339), m.Checksum, finished.Sub(started).Milliseconds()); err != nil {
		return NewDatabaseError(m.Version, insert, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return NewDatabaseError(m.Version, "", "commit transaction", err)
	}
	return nil
}

// AppliedMigrations lists schema_migrations ordered by version.
func (e *Executor) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	const query = `SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations`
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, NewDatabaseError("", query, "list applied migrations", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			row       AppliedMigration
			appliedAt string
			elapsedMs int64
		)
		if err := rows.Scan(&row.Version, &appliedAt, &row.Checksum, &elapsedMs); err != nil {
			return nil, NewDatabaseError("", query, "scan applied migration", err)
		}
		if row.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, NewDatabaseError(row.Version, query, "parse applied_at", err)
		}
		row.ExecutionTime = time.Duration(elapsedMs) * time.Millisecond
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", query, "iterate applied migrations", err)
	}

	sortApplied(applied)
	return applied, nil
}
