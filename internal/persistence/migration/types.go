package migration

import (
	"fmt"
	"time"
)

// Dialect selects the SQL flavour of the migration files and version table.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect validates a driver name from configuration.
func ParseDialect(value string) (Dialect, error) {
	switch Dialect(value) {
	case DialectSQLite, DialectPostgres:
		return Dialect(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, value)
	}
}

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Migration is one versioned SQL file.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the schema state of a database.
type Status struct {
	CurrentVersion string
	PendingCount   int
	Applied        []AppliedMigration
	Pending        []Migration
}
