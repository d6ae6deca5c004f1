package testfixtures

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

// Store operation names accepted by SessionStore.FailNext and Calls.
const (
	OpList   = "list"
	OpCreate = "create"
	OpBatch  = "batch"
	OpUpdate = "update"
	OpDelete = "delete"
)

// SessionStore is an in-memory schedule.SessionStore with failure injection.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]schedule.Session
	ids      *IDGenerator
	clock    *Clock
	failures map[string][]error
	calls    map[string]int

	// BatchLimit caps how many sessions a batch creates when positive.
	BatchLimit int
	// BeforeList runs before ListSessions reads the data, outside the lock.
	BeforeList func(ctx context.Context, from, to calendar.Date)
}

// NewSessionStore returns an empty store. Created sessions get increasing
// CreatedAt values one second apart starting at ReferenceTime.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]schedule.Session),
		ids:      NewIDGenerator("session"),
		clock:    NewTickingClock(ReferenceTime(), time.Second),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// Seed inserts sessions as-is.
func (s *SessionStore) Seed(sessions ...schedule.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range sessions {
		s.sessions[session.ID] = session
	}
}

// FailNext makes the next call of op return err.
func (s *SessionStore) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Calls returns how many times op was invoked.
func (s *SessionStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Get returns the stored session with id.
func (s *SessionStore) Get(id string) (schedule.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) begin(op string) error {
	s.calls[op]++
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.failures[op] = queue[1:]
	return schedule.Unavailable(op, err)
}

// ListSessions implements schedule.SessionStore.
func (s *SessionStore) ListSessions(ctx context.Context, clientID string, from, to calendar.Date) ([]schedule.Session, error) {
	if hook := s.BeforeList; hook != nil {
		hook(ctx, from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpList); err != nil {
		return nil, err
	}

	out := make([]schedule.Session, 0)
	for _, session := range s.sessions {
		if session.ClientID == clientID && session.Date.Within(from, to) {
			out = append(out, session)
		}
	}
	schedule.SortSessions(out)
	return out, nil
}

// CreateSession implements schedule.SessionStore.
func (s *SessionStore) CreateSession(ctx context.Context, fields schedule.SessionFields) (schedule.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpCreate); err != nil {
		return schedule.Session{}, err
	}
	return s.insertLocked(fields.WithDefaults()), nil
}

// CreateSessionsBatch implements schedule.SessionStore.
func (s *SessionStore) CreateSessionsBatch(ctx context.Context, fields []schedule.SessionFields) ([]schedule.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpBatch); err != nil {
		return nil, err
	}

	limit := len(fields)
	if s.BatchLimit > 0 && s.BatchLimit < limit {
		limit = s.BatchLimit
	}
	created := make([]schedule.Session, 0, limit)
	for _, f := range fields[:limit] {
		created = append(created, s.insertLocked(f.WithDefaults()))
	}
	if len(created) != len(fields) {
		return created, &schedule.PartialBatchFailure{Requested: len(fields), Created: len(created), Sessions: created}
	}
	return created, nil
}

// UpdateSession implements schedule.SessionStore.
func (s *SessionStore) UpdateSession(ctx context.Context, id string, patch schedule.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpUpdate); err != nil {
		return err
	}
	session, ok := s.sessions[id]
	if !ok {
		return schedule.ErrSessionNotFound
	}
	s.sessions[id] = patch.Apply(session)
	return nil
}

// DeleteSession implements schedule.SessionStore.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpDelete); err != nil {
		return err
	}
	if _, ok := s.sessions[id]; !ok {
		return schedule.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) insertLocked(fields schedule.SessionFields) schedule.Session {
	session := schedule.Session{
		ID:          s.ids.Next(),
		ClientID:    fields.ClientID,
		Title:       fields.Title,
		Description: fields.Description,
		Date:        fields.Date,
		StartTime:   fields.StartTime,
		EndTime:     fields.EndTime,
		CreatedAt:   s.clock.Now(),
	}
	s.sessions[session.ID] = session
	return session
}

// ErrTransport is a stand-in network failure for FailNext.
var ErrTransport = errors.New("connection reset by peer")

var _ schedule.SessionStore = (*SessionStore)(nil)
