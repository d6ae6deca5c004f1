package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/persistence"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

var (
	sessionCounter uint64
	clientCounter  uint64
)

var referenceTime = time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on Monday 2024-06-03.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date of ReferenceTime.
func ReferenceDate() calendar.Date {
	return calendar.DateOf(referenceTime)
}

// ----------------------------- Session fixtures -----------------------------

// SessionFixture is a deterministic session usable by core and persistence tests.
type SessionFixture struct {
	ID          string
	ClientID    string
	Title       string
	Description string
	Date        calendar.Date
	StartTime   string
	EndTime     string
	CreatedAt   time.Time
}

// SessionOption customises a SessionFixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture builds a session on ReferenceDate for client-1.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	n := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-fixture-%03d", n),
		ClientID:  "client-1",
		Title:     schedule.DefaultTitle,
		Date:      ReferenceDate(),
		CreatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID sets the identifier.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) { f.ID = id }
}

// WithSessionClient sets the owning client.
func WithSessionClient(clientID string) SessionOption {
	return func(f *SessionFixture) { f.ClientID = clientID }
}

// WithSessionTitle sets the title.
func WithSessionTitle(title string) SessionOption {
	return func(f *SessionFixture) { f.Title = title }
}

// WithSessionDescription sets the description.
func WithSessionDescription(description string) SessionOption {
	return func(f *SessionFixture) { f.Description = description }
}

// WithSessionDate sets the day from a YYYY-MM-DD literal.
func WithSessionDate(date string) SessionOption {
	return func(f *SessionFixture) { f.Date = calendar.MustParseDate(date) }
}

// WithSessionTimes sets start and end times of day.
func WithSessionTimes(start, end string) SessionOption {
	return func(f *SessionFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithSessionCreatedAt sets the creation timestamp.
func WithSessionCreatedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.CreatedAt = t }
}

// Schedule returns the fixture as a scheduler session.
func (f SessionFixture) Schedule() schedule.Session {
	return schedule.Session{
		ID:          f.ID,
		ClientID:    f.ClientID,
		Title:       f.Title,
		Description: f.Description,
		Date:        f.Date,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		CreatedAt:   f.CreatedAt,
	}
}

// Persistence returns the fixture as a stored session row.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		ClientID:    f.ClientID,
		Title:       f.Title,
		Description: f.Description,
		Date:        f.Date.Time(time.UTC),
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		CreatedAt:   f.CreatedAt,
	}
}

// ----------------------------- Client fixtures -----------------------------

// ClientFixture is a deterministic client profile.
type ClientFixture struct {
	ID        string
	Email     string
	FullName  string
	CreatedAt time.Time
}

// ClientOption customises a ClientFixture.
type ClientOption func(*ClientFixture)

// NewClientFixture builds a client with a unique email.
func NewClientFixture(opts ...ClientOption) ClientFixture {
	n := atomic.AddUint64(&clientCounter, 1)
	fixture := ClientFixture{
		ID:        fmt.Sprintf("client-fixture-%03d", n),
		Email:     fmt.Sprintf("client%03d@example.com", n),
		FullName:  fmt.Sprintf("Camille Martin %d", n),
		CreatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithClientID sets the identifier.
func WithClientID(id string) ClientOption {
	return func(f *ClientFixture) { f.ID = id }
}

// WithClientEmail sets the email.
func WithClientEmail(email string) ClientOption {
	return func(f *ClientFixture) { f.Email = email }
}

// WithClientName sets the full name.
func WithClientName(name string) ClientOption {
	return func(f *ClientFixture) { f.FullName = name }
}

// WithClientCreatedAt sets the creation timestamp.
func WithClientCreatedAt(t time.Time) ClientOption {
	return func(f *ClientFixture) { f.CreatedAt = t }
}

// Persistence returns the fixture as a stored profile row.
func (f ClientFixture) Persistence() persistence.Profile {
	return persistence.Profile{
		ID:        f.ID,
		Email:     f.Email,
		FullName:  f.FullName,
		Role:      persistence.RoleClient,
		CreatedAt: f.CreatedAt,
	}
}
