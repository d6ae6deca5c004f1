package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/REMSofram/plateforme-coach/internal/logging"
)

// Database drivers accepted in COACH_DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures environment driven configuration values for the coach service.
type Config struct {
	HTTPPort     int
	DBDriver     string
	SQLiteDSN    string
	PostgresURL  string
	JWTSecret    string
	NATSURL      string
	ReminderCron string
	Timezone     string
	Location     *time.Location
	LogLevel     slog.Level
	ConfigFile   string
}

// FileConfig is the optional YAML overlay named by COACH_CONFIG_FILE. Its
// values replace the defaults; environment variables still win.
type FileConfig struct {
	HTTPPort     int    `yaml:"http_port"`
	DBDriver     string `yaml:"db_driver"`
	SQLiteDSN    string `yaml:"sqlite_dsn"`
	PostgresURL  string `yaml:"postgres_url"`
	NATSURL      string `yaml:"nats_url"`
	ReminderCron string `yaml:"reminder_cron"`
	Timezone     string `yaml:"timezone"`
	LogLevel     string `yaml:"log_level"`
}

// LoadDotEnv loads the given .env files into the process environment. Missing
// files are skipped and variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

// ReadFile parses a YAML overlay.
func ReadFile(path string) (FileConfig, error) {
	var file FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return file, nil
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom parses configuration using getenv for lookups.
//
// Defaults apply first, then the YAML overlay, then environment variables.
// Missing required values and invalid entries are reported together.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		DBDriver:     DriverSQLite,
		SQLiteDSN:    "coach.db",
		ReminderCron: "0 18 * * *",
		Timezone:     "Europe/Paris",
		LogLevel:     slog.LevelInfo,
	}
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if path := env("COACH_CONFIG_FILE"); path != "" {
		cfg.ConfigFile = path
		file, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if invalidKeys := cfg.overlay(file); len(invalidKeys) > 0 {
			invalid = append(invalid, invalidKeys...)
		}
	}

	if portValue := env("COACH_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "COACH_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if driver := env("COACH_DB_DRIVER"); driver != "" {
		cfg.DBDriver = strings.ToLower(driver)
	}
	if cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverPostgres {
		invalid = append(invalid, "COACH_DB_DRIVER")
	}

	if dsn := env("COACH_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if url := env("COACH_POSTGRES_URL"); url != "" {
		cfg.PostgresURL = url
	}
	if cfg.DBDriver == DriverPostgres && cfg.PostgresURL == "" {
		missing = append(missing, "COACH_POSTGRES_URL")
	}

	if secret := env("COACH_JWT_SECRET"); secret == "" {
		missing = append(missing, "COACH_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	if natsURL := env("COACH_NATS_URL"); natsURL != "" {
		cfg.NATSURL = natsURL
	}

	if spec := env("COACH_REMINDER_CRON"); spec != "" {
		cfg.ReminderCron = spec
	}
	if _, err := cron.ParseStandard(cfg.ReminderCron); err != nil {
		invalid = append(invalid, "COACH_REMINDER_CRON")
	}

	if zone := env("COACH_TIMEZONE"); zone != "" {
		cfg.Timezone = zone
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "COACH_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if levelValue := env("COACH_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "COACH_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("variables d'environnement obligatoires manquantes : %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valeurs de configuration invalides : %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func (c *Config) overlay(file FileConfig) []string {
	var invalid []string
	if file.HTTPPort != 0 {
		if file.HTTPPort < 0 {
			invalid = append(invalid, "http_port")
		} else {
			c.HTTPPort = file.HTTPPort
		}
	}
	if file.DBDriver != "" {
		c.DBDriver = strings.ToLower(strings.TrimSpace(file.DBDriver))
	}
	if file.SQLiteDSN != "" {
		c.SQLiteDSN = file.SQLiteDSN
	}
	if file.PostgresURL != "" {
		c.PostgresURL = file.PostgresURL
	}
	if file.NATSURL != "" {
		c.NATSURL = file.NATSURL
	}
	if file.ReminderCron != "" {
		c.ReminderCron = file.ReminderCron
	}
	if file.Timezone != "" {
		c.Timezone = file.Timezone
	}
	if file.LogLevel != "" {
		level, err := logging.ParseLevel(file.LogLevel)
		if err != nil {
			invalid = append(invalid, "log_level")
		} else {
			c.LogLevel = level
		}
	}
	return invalid
}
