package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestManager_RunBundledSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openMemoryDB(t)
	manager, err := NewManager(db, DialectSQLite, nil)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	if err := manager.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.PendingCount != 0 || status.CurrentVersion != "0003" {
		t.Fatalf("unexpected status after run: %+v", status)
	}

	for _, table := range []string{"profiles", "coach_clients", "sessions", "weight_logs"} {
		var name string
		if err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	if err := manager.Run(ctx); err != nil {
		t.Fatalf("second Run must be a no-op, got %v", err)
	}
}

func TestManager_StopsAtFailureAndKeepsEarlierMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openMemoryDB(t)
	source := fstest.MapFS{
		"1_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"2_broken.sql": {Data: []byte("CREATE TABLE broken (id TEXT);\nINSERT INTO missing VALUES (1);")},
		"3_later.sql":  {Data: []byte("CREATE TABLE later (id TEXT);")},
	}
	manager := NewManagerWithSource(db, DialectSQLite, source, nil)

	err := manager.Run(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	var migrationErr *MigrationError
	if !errors.As(err, &migrationErr) || migrationErr.Version != "2" {
		t.Fatalf("expected failure on version 2, got %v", err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "1" || status.PendingCount != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'broken'").Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed migration must be rolled back")
	}
}

func TestManager_DetectsEditedAndMissingFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("edited file", func(t *testing.T) {
		t.Parallel()
		db := openMemoryDB(t)
		original := fstest.MapFS{"1_init.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
		if err := NewManagerWithSource(db, DialectSQLite, original, nil).Run(ctx); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		edited := fstest.MapFS{"1_init.sql": {Data: []byte("CREATE TABLE a (id TEXT, extra TEXT);")}}
		_, err := NewManagerWithSource(db, DialectSQLite, edited, nil).Status(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		db := openMemoryDB(t)
		original := fstest.MapFS{"1_init.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
		if err := NewManagerWithSource(db, DialectSQLite, original, nil).Run(ctx); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		_, err := NewManagerWithSource(db, DialectSQLite, fstest.MapFS{}, nil).Status(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})
}

func TestDialectPlaceholder(t *testing.T) {
	t.Parallel()

	if got := DialectSQLite.placeholder(3); got != "?" {
		t.Fatalf("sqlite placeholder = %q", got)
	}
	if got := DialectPostgres.placeholder(3); got != "$3" {
		t.Fatalf("postgres placeholder = %q", got)
	}
	if _, err := ParseDialect("mysql"); !errors.Is(err, ErrUnknownDialect) {
		t.Fatalf("expected ErrUnknownDialect, got %v", err)
	}
}
