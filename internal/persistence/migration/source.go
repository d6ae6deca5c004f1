package migration

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sql
var embedded embed.FS

// Source returns the bundled migration files for dialect.
func Source(dialect Dialect) (fs.FS, error) {
	if _, err := ParseDialect(string(dialect)); err != nil {
		return nil, err
	}
	sub, err := fs.Sub(embedded, "sql/"+string(dialect))
	if err != nil {
		return nil, fmt.Errorf("open %s migrations: %w", dialect, err)
	}
	return sub, nil
}
