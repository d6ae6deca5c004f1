// Package migration applies the versioned SQL files bundled for each supported
// database dialect and records them in a schema_migrations table.
//
// Files are named {version}_{description}.sql. Each file runs inside one
// transaction together with its schema_migrations row.
package migration
