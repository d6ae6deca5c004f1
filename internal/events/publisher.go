package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

// Subjects published for session lifecycle changes.
const (
	SubjectSessionCreated  = "session.created"
	SubjectSessionUpdated  = "session.updated"
	SubjectSessionDeleted  = "session.deleted"
	SubjectSessionReminder = "session.reminder"
)

// SessionEvent is the JSON payload published on every session subject.
type SessionEvent struct {
	EventType  string    `json:"event_type"`
	SessionID  string    `json:"session_id"`
	ClientID   string    `json:"client_id"`
	Title      string    `json:"title,omitempty"`
	Date       string    `json:"date,omitempty"`
	StartTime  string    `json:"start_time,omitempty"`
	EndTime    string    `json:"end_time,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewSessionEvent describes session for subject at the given instant.
func NewSessionEvent(subject string, session schedule.Session, at time.Time) SessionEvent {
	event := SessionEvent{
		EventType:  subject,
		SessionID:  session.ID,
		ClientID:   session.ClientID,
		Title:      session.Title,
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
		OccurredAt: at.UTC(),
	}
	if !session.Date.IsZero() {
		event.Date = session.Date.String()
	}
	return event
}

// Publisher delivers session events to subscribers.
type Publisher interface {
	PublishSession(ctx context.Context, event SessionEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// PublishSession implements Publisher.
func (NopPublisher) PublishSession(context.Context, SessionEvent) error { return nil }

// NatsPublisher publishes events on a NATS connection, one subject per event type.
type NatsPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNatsPublisher connects to natsURL.
func NewNatsPublisher(natsURL string, logger *slog.Logger) (*NatsPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(natsURL,
		nats.Name("coach-scheduler"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", natsURL, err)
	}
	return &NatsPublisher{conn: conn, logger: logger}, nil
}

// PublishSession implements Publisher.
func (p *NatsPublisher) PublishSession(ctx context.Context, event SessionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.EventType, err)
	}
	if err := p.conn.Publish(event.EventType, payload); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.EventType, err)
	}
	p.logger.DebugContext(ctx, "event published", "subject", event.EventType, "session_id", event.SessionID)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*NatsPublisher)(nil)
)
