package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		cfg, err := LoadFrom(envMap(map[string]string{"COACH_JWT_SECRET": "super-secret"}))
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.DBDriver != DriverSQLite || cfg.SQLiteDSN != "coach.db" {
			t.Fatalf("unexpected default storage: %q %q", cfg.DBDriver, cfg.SQLiteDSN)
		}
		if cfg.ReminderCron != "0 18 * * *" {
			t.Fatalf("unexpected default cron: %q", cfg.ReminderCron)
		}
		if cfg.Location == nil || cfg.Timezone != "Europe/Paris" {
			t.Fatalf("expected Europe/Paris location, got %q", cfg.Timezone)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("expected info level, got %v", cfg.LogLevel)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		_, err := LoadFrom(envMap(map[string]string{"COACH_DB_DRIVER": "postgres"}))
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "variables d'environnement obligatoires manquantes : COACH_POSTGRES_URL, COACH_JWT_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports invalid values together", func(t *testing.T) {
		_, err := LoadFrom(envMap(map[string]string{
			"COACH_JWT_SECRET":    "secret",
			"COACH_HTTP_PORT":     "-1",
			"COACH_DB_DRIVER":     "mysql",
			"COACH_REMINDER_CRON": "every day",
			"COACH_TIMEZONE":      "Mars/Olympus",
			"COACH_LOG_LEVEL":     "loud",
		}))
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "valeurs de configuration invalides : COACH_HTTP_PORT, COACH_DB_DRIVER, COACH_REMINDER_CRON, COACH_TIMEZONE, COACH_LOG_LEVEL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses every field", func(t *testing.T) {
		cfg, err := LoadFrom(envMap(map[string]string{
			"COACH_JWT_SECRET":    "secret-value",
			"COACH_HTTP_PORT":     "9090",
			"COACH_DB_DRIVER":     "POSTGRES",
			"COACH_POSTGRES_URL":  "postgres://coach@localhost/coach",
			"COACH_NATS_URL":      "nats://localhost:4222",
			"COACH_REMINDER_CRON": "30 7 * * 1-5",
			"COACH_TIMEZONE":      "UTC",
			"COACH_LOG_LEVEL":     "debug",
		}))
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.DBDriver != DriverPostgres || cfg.NATSURL != "nats://localhost:4222" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelDebug || cfg.Location != time.UTC {
			t.Fatalf("unexpected level or location: %v %v", cfg.LogLevel, cfg.Location)
		}
	})
}

func TestLoader_YAMLOverlay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coach.yaml")
	writeFile(t, path, "http_port: 7070\nsqlite_dsn: /var/lib/coach.db\nlog_level: warn\ntimezone: UTC\n")

	cfg, err := LoadFrom(envMap(map[string]string{
		"COACH_JWT_SECRET":  "secret",
		"COACH_CONFIG_FILE": path,
		"COACH_HTTP_PORT":   "6060",
	}))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.HTTPPort != 6060 {
		t.Fatalf("environment must override the file, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "/var/lib/coach.db" || cfg.LogLevel != slog.LevelWarn || cfg.Timezone != "UTC" {
		t.Fatalf("expected file values to replace defaults, got %+v", cfg)
	}

	if _, err := LoadFrom(envMap(map[string]string{"COACH_JWT_SECRET": "s", "COACH_CONFIG_FILE": filepath.Join(t.TempDir(), "missing.yaml")})); err == nil {
		t.Fatalf("expected error for a missing overlay")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "COACH_DOTENV_PROBE=from-file\n")
	t.Setenv("COACH_DOTENV_PROBE", "")
	if err := os.Unsetenv("COACH_DOTENV_PROBE"); err != nil {
		t.Fatalf("failed to unset: %v", err)
	}

	if err := LoadDotEnv(filepath.Join(dir, "absent.env"), path); err != nil {
		t.Fatalf("LoadDotEnv returned error: %v", err)
	}
	if got := os.Getenv("COACH_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestApplyLogLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coach.yaml")
	level := new(slog.LevelVar)

	writeFile(t, path, "log_level: error\n")
	changed, err := ApplyLogLevel(path, level)
	if err != nil || !changed || level.Level() != slog.LevelError {
		t.Fatalf("expected level error, changed=%v err=%v level=%v", changed, err, level.Level())
	}

	changed, err = ApplyLogLevel(path, level)
	if err != nil || changed {
		t.Fatalf("same level must report no change, changed=%v err=%v", changed, err)
	}

	writeFile(t, path, "log_level: shout\n")
	if _, err := ApplyLogLevel(path, level); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if level.Level() != slog.LevelError {
		t.Fatalf("invalid reload must keep the previous level")
	}
}

func TestWatchReloadsLogLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coach.yaml")
	writeFile(t, path, "log_level: info\n")
	level := new(slog.LevelVar)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, level, nil) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(5 * time.Second)
	for level.Level() != slog.LevelDebug {
		if time.Now().After(deadline) {
			t.Fatalf("log level was not reloaded, still %v", level.Level())
		}
		writeFile(t, path, "log_level: debug\n")
		time.Sleep(200 * time.Millisecond)
	}
}
