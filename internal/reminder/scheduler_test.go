package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
	"github.com/REMSofram/plateforme-coach/internal/testfixtures"
)

type stubSource struct {
	asked    []calendar.Date
	sessions []schedule.Session
	err      error
}

func (s *stubSource) SessionsOn(_ context.Context, day calendar.Date) ([]schedule.Session, error) {
	s.asked = append(s.asked, day)
	return s.sessions, s.err
}

type stubNotifier struct {
	sent   []string
	failOn string
}

func (n *stubNotifier) PublishReminder(_ context.Context, session schedule.Session) error {
	if session.ID == n.failOn {
		return errors.New("broker down")
	}
	n.sent = append(n.sent, session.ID)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunOnceUsesTomorrowInLocation(t *testing.T) {
	t.Parallel()

	source := &stubSource{sessions: []schedule.Session{
		testfixtures.NewSessionFixture(testfixtures.WithSessionID("a")).Schedule(),
		testfixtures.NewSessionFixture(testfixtures.WithSessionID("b")).Schedule(),
	}}
	notifier := &stubNotifier{}
	// 22:30 UTC on Monday is already Tuesday at UTC+2.
	now := time.Date(2024, time.June, 3, 22, 30, 0, 0, time.UTC)
	s := NewScheduler(source, notifier, time.FixedZone("UTC+2", 2*60*60), func() time.Time { return now }, quietLogger())

	sent, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if sent != 2 || len(notifier.sent) != 2 {
		t.Fatalf("expected two reminders, got %d", sent)
	}
	if len(source.asked) != 1 || source.asked[0].String() != "2024-06-05" {
		t.Fatalf("expected sessions of 2024-06-05, got %v", source.asked)
	}
}

func TestScheduler_RunOnceContinuesAfterPublishFailure(t *testing.T) {
	t.Parallel()

	source := &stubSource{sessions: []schedule.Session{
		testfixtures.NewSessionFixture(testfixtures.WithSessionID("a")).Schedule(),
		testfixtures.NewSessionFixture(testfixtures.WithSessionID("b")).Schedule(),
		testfixtures.NewSessionFixture(testfixtures.WithSessionID("c")).Schedule(),
	}}
	notifier := &stubNotifier{failOn: "b"}
	s := NewScheduler(source, notifier, nil, testfixtures.NewClock(testfixtures.ReferenceTime()).NowFunc(), quietLogger())

	sent, err := s.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected the failed publish to be reported")
	}
	if sent != 2 || notifier.sent[0] != "a" || notifier.sent[1] != "c" {
		t.Fatalf("expected a and c to be sent, got %v", notifier.sent)
	}
}

func TestScheduler_RunOnceSourceFailure(t *testing.T) {
	t.Parallel()

	source := &stubSource{err: schedule.Unavailable("list", errors.New("timeout"))}
	s := NewScheduler(source, &stubNotifier{}, nil, nil, quietLogger())

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, schedule.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestScheduler_StartValidatesSpec(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&stubSource{}, &stubNotifier{}, nil, nil, quietLogger())
	if err := s.Start("not a cron"); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
	if err := s.Start("0 18 * * *"); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := s.Start("0 18 * * *"); err == nil {
		t.Fatalf("expected second Start to fail")
	}
	s.Stop()
	s.Stop()
}
