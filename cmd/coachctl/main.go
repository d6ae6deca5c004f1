// Command coachctl is an interactive console over the coach scheduler API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/config"
	"github.com/REMSofram/plateforme-coach/internal/logging"
	"github.com/REMSofram/plateforme-coach/internal/remote"
)

type options struct {
	apiURL   string
	token    string
	secret   string
	clientID string
	today    string
	timezone string
	logLevel string
}

func main() {
	_ = config.LoadDotEnv(".env")

	var opts options
	flag.StringVar(&opts.apiURL, "api", envOr("COACH_API_URL", "http://localhost:8080"), "Base URL of the scheduler API")
	flag.StringVar(&opts.token, "token", os.Getenv("COACH_TOKEN"), "Bearer token of the coach")
	flag.StringVar(&opts.secret, "secret", os.Getenv("COACH_JWT_SECRET"), "Shared secret used by the token command")
	flag.StringVar(&opts.clientID, "client", "", "Client whose week is opened at start")
	flag.StringVar(&opts.today, "today", "", "Override today's date (YYYY-MM-DD)")
	flag.StringVar(&opts.timezone, "tz", envOr("COACH_TIMEZONE", "Europe/Paris"), "Time zone used for today")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "coachctl:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	levelValue, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	level := new(slog.LevelVar)
	level.Set(levelValue)
	logger := logging.New(os.Stderr, logging.FormatText, level)

	location, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("load time zone %q: %w", opts.timezone, err)
	}
	today := calendar.Today(time.Now, location)
	if opts.today != "" {
		if today, err = calendar.ParseDate(opts.today); err != nil {
			return err
		}
	}

	client, err := remote.New(opts.apiURL, opts.token, nil, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	console := newConsole(client, client, os.Stdout, today, logger)
	console.secret = opts.secret
	console.onToken = client.SetToken
	if opts.clientID != "" {
		if err := console.execute(ctx, "use "+opts.clientID); err != nil {
			console.printf("%v\n", err)
		}
	}
	return console.loop(ctx, os.Stdin)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
