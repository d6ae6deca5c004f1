package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

// SessionSource lists every client's sessions for one day.
type SessionSource interface {
	SessionsOn(ctx context.Context, day calendar.Date) ([]schedule.Session, error)
}

// Notifier announces one upcoming session.
type Notifier interface {
	PublishReminder(ctx context.Context, session schedule.Session) error
}

// Scheduler sends a reminder for every session dated tomorrow on a cron schedule.
type Scheduler struct {
	source   SessionSource
	notifier Notifier
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
	timeout  time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

// NewScheduler wires a reminder job. "Tomorrow" is computed in location.
func NewScheduler(source SessionSource, notifier Notifier, location *time.Location, now func() time.Time, logger *slog.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		location: location,
		now:      now,
		logger:   logger.With("component", "reminder"),
		timeout:  time.Minute,
	}
}

// Start registers the job under spec (standard five-field cron syntax,
// evaluated in the scheduler location) and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("reminder: scheduler already started")
	}

	runner := cron.New(cron.WithLocation(s.location))
	if _, err := runner.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("reminder: invalid schedule %q: %w", spec, err)
	}
	runner.Start()
	s.cron = runner
	s.logger.Info("reminder scheduler started", "schedule", spec, "timezone", s.location.String())
	return nil
}

// Stop halts the runner and waits for a running job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	runner := s.cron
	s.cron = nil
	s.mu.Unlock()
	if runner == nil {
		return
	}
	<-runner.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "reminder run failed", "error", err)
	}
}

// RunOnce publishes reminders for tomorrow's sessions and returns how many
// were sent. A failed publish does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	tomorrow := calendar.Today(s.now, s.location).AddDays(1)

	sessions, err := s.source.SessionsOn(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("reminder: list sessions of %s: %w", tomorrow, err)
	}

	sent := 0
	var errs []error
	for _, session := range sessions {
		if err := s.notifier.PublishReminder(ctx, session); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", session.ID, err))
			continue
		}
		sent++
	}
	s.logger.InfoContext(ctx, "reminders sent", "date", tomorrow.String(), "sent", sent, "failed", len(errs))
	return sent, errors.Join(errs...)
}
