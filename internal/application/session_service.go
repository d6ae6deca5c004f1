package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/events"
	"github.com/REMSofram/plateforme-coach/internal/persistence"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

// SessionService is the server-side session store. It validates writes,
// persists them through the repository and publishes lifecycle events.
type SessionService struct {
	sessions    persistence.SessionRepository
	publisher   events.Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService wires dependencies for session operations. A nil
// publisher drops events.
func NewSessionService(sessions persistence.SessionRepository, publisher events.Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:    sessions,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// ListSessions implements schedule.SessionStore.
func (s *SessionService) ListSessions(ctx context.Context, clientID string, from, to calendar.Date) ([]schedule.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}

	rows, err := s.sessions.ListSessions(ctx, clientID, from.Time(time.UTC), to.Time(time.UTC))
	if err != nil {
		s.loggerWith(ctx, "ListSessions", "client_id", clientID).
			ErrorContext(ctx, "failed to list sessions", "error", err)
		return nil, schedule.Unavailable("list", err)
	}
	return toScheduleSessions(rows), nil
}

// SessionsOn returns the sessions of every client dated day.
func (s *SessionService) SessionsOn(ctx context.Context, day calendar.Date) ([]schedule.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	rows, err := s.sessions.ListSessionsOn(ctx, day.Time(time.UTC))
	if err != nil {
		return nil, schedule.Unavailable("list", err)
	}
	return toScheduleSessions(rows), nil
}

// GetSession returns one session.
func (s *SessionService) GetSession(ctx context.Context, id string) (schedule.Session, error) {
	if s == nil {
		return schedule.Session{}, fmt.Errorf("SessionService is nil")
	}
	row, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return schedule.Session{}, mapSessionRepoError("get", err)
	}
	return toScheduleSession(row), nil
}

// CreateSession implements schedule.SessionStore.
func (s *SessionService) CreateSession(ctx context.Context, fields schedule.SessionFields) (session schedule.Session, err error) {
	if s == nil {
		return schedule.Session{}, fmt.Errorf("SessionService is nil")
	}

	logger := s.loggerWith(ctx, "CreateSession", "client_id", fields.ClientID, "date", fields.Date.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session created", "session_id", session.ID)
	}()

	fields, vErr := normalizeSessionFields(fields)
	if vErr.HasErrors() {
		return schedule.Session{}, vErr
	}

	session, err = s.insert(ctx, fields)
	if err != nil {
		return schedule.Session{}, err
	}
	s.publish(ctx, events.SubjectSessionCreated, session)
	return session, nil
}

// CreateSessionsBatch implements schedule.SessionStore. Inserts run in order
// and stop at the first failure; rows already written stay.
func (s *SessionService) CreateSessionsBatch(ctx context.Context, fields []schedule.SessionFields) (created []schedule.Session, err error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}

	logger := s.loggerWith(ctx, "CreateSessionsBatch", "requested", len(fields))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "batch creation incomplete", "error", err, "error_kind", ErrorKind(err), "created", len(created))
			return
		}
		logger.InfoContext(ctx, "sessions created", "created", len(created))
	}()

	vErr := &ValidationError{}
	normalized := make([]schedule.SessionFields, len(fields))
	for i, f := range fields {
		n, fieldErr := normalizeSessionFields(f)
		if fieldErr.HasErrors() {
			for field, msg := range fieldErr.FieldErrors {
				vErr.add(fmt.Sprintf("sessions[%d].%s", i, field), msg)
			}
		}
		normalized[i] = n
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	created = make([]schedule.Session, 0, len(normalized))
	for _, f := range normalized {
		session, insertErr := s.insert(ctx, f)
		if insertErr != nil {
			if len(created) == 0 {
				return created, insertErr
			}
			return created, &schedule.PartialBatchFailure{Requested: len(normalized), Created: len(created), Sessions: created}
		}
		created = append(created, session)
	}
	for _, session := range created {
		s.publish(ctx, events.SubjectSessionCreated, session)
	}
	return created, nil
}

// UpdateSession implements schedule.SessionStore.
func (s *SessionService) UpdateSession(ctx context.Context, id string, patch schedule.SessionPatch) (err error) {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}

	logger := s.loggerWith(ctx, "UpdateSession", "session_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	update, vErr := toSessionUpdate(patch)
	if vErr.HasErrors() {
		return vErr
	}
	if err = s.sessions.UpdateSession(ctx, id, update); err != nil {
		return mapSessionRepoError("update", err)
	}

	row, getErr := s.sessions.GetSession(ctx, id)
	if getErr != nil {
		logger.WarnContext(ctx, "updated session could not be reloaded for publishing", "error", getErr)
		return nil
	}
	s.publish(ctx, events.SubjectSessionUpdated, toScheduleSession(row))
	return nil
}

// DeleteSession implements schedule.SessionStore.
func (s *SessionService) DeleteSession(ctx context.Context, id string) (err error) {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteSession", "session_id", id)
	defer func() {
		if err != nil && !errors.Is(err, schedule.ErrSessionNotFound) {
			logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	existing := schedule.Session{ID: id}
	if row, getErr := s.sessions.GetSession(ctx, id); getErr == nil {
		existing = toScheduleSession(row)
	}

	if err = s.sessions.DeleteSession(ctx, id); err != nil {
		return mapSessionRepoError("delete", err)
	}
	logger.InfoContext(ctx, "session deleted", "client_id", existing.ClientID)
	s.publish(ctx, events.SubjectSessionDeleted, existing)
	return nil
}

// Duplicate copies the session with id following policy.
func (s *SessionService) Duplicate(ctx context.Context, id string, policy schedule.RecurrencePolicy) ([]schedule.Session, error) {
	base, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return schedule.NewDuplicator(s, nil, s.logger).Duplicate(ctx, base, policy)
}

// Week loads the seven buckets of the week containing day.
func (s *SessionService) Week(ctx context.Context, clientID string, day calendar.Date) ([]schedule.Day, error) {
	view := schedule.NewWeekView(s, clientID, day, s.logger)
	if err := view.Refresh(ctx); err != nil {
		return nil, err
	}
	return view.Days(), nil
}

// PublishReminder announces an upcoming session.
func (s *SessionService) PublishReminder(ctx context.Context, session schedule.Session) error {
	return s.publisher.PublishSession(ctx, events.NewSessionEvent(events.SubjectSessionReminder, session, s.now()))
}

func (s *SessionService) insert(ctx context.Context, fields schedule.SessionFields) (schedule.Session, error) {
	row := persistence.Session{
		ID:          s.idGenerator(),
		ClientID:    fields.ClientID,
		Title:       fields.Title,
		Description: fields.Description,
		Date:        fields.Date.Time(time.UTC),
		StartTime:   fields.StartTime,
		EndTime:     fields.EndTime,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.sessions.CreateSession(ctx, row); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return schedule.Session{}, ErrNotFound
		}
		return schedule.Session{}, schedule.Unavailable("create", err)
	}
	return toScheduleSession(row), nil
}

// publish never fails the caller; the write already happened.
func (s *SessionService) publish(ctx context.Context, subject string, session schedule.Session) {
	if err := s.publisher.PublishSession(ctx, events.NewSessionEvent(subject, session, s.now())); err != nil {
		s.loggerWith(ctx, "publish", "subject", subject, "session_id", session.ID).
			WarnContext(ctx, "failed to publish session event", "error", err)
	}
}

func normalizeSessionFields(fields schedule.SessionFields) (schedule.SessionFields, *ValidationError) {
	vErr := &ValidationError{}
	fields = fields.WithDefaults()

	if fields.ClientID == "" {
		vErr.add("client_id", "client is required")
	}
	if fields.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if start, ok := schedule.ValidateClock(fields.StartTime); ok {
		fields.StartTime = start
	} else {
		vErr.add("start_time", "start time must be HH:MM")
	}
	if end, ok := schedule.ValidateClock(fields.EndTime); ok {
		fields.EndTime = end
	} else {
		vErr.add("end_time", "end time must be HH:MM")
	}
	return fields, vErr
}

func toSessionUpdate(patch schedule.SessionPatch) (persistence.SessionUpdate, *ValidationError) {
	vErr := &ValidationError{}
	update := persistence.SessionUpdate{
		Title:       patch.Title,
		Description: patch.Description,
	}
	if patch.Date != nil {
		if patch.Date.IsZero() {
			vErr.add("date", "date is required")
		} else {
			day := patch.Date.Time(time.UTC)
			update.Date = &day
		}
	}
	if patch.StartTime != nil {
		if start, ok := schedule.ValidateClock(*patch.StartTime); ok {
			update.StartTime = &start
		} else {
			vErr.add("start_time", "start time must be HH:MM")
		}
	}
	if patch.EndTime != nil {
		if end, ok := schedule.ValidateClock(*patch.EndTime); ok {
			update.EndTime = &end
		} else {
			vErr.add("end_time", "end time must be HH:MM")
		}
	}
	return update, vErr
}

func mapSessionRepoError(op string, err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return schedule.ErrSessionNotFound
	}
	return schedule.Unavailable(op, err)
}

func toScheduleSession(row persistence.Session) schedule.Session {
	return schedule.Session{
		ID:          row.ID,
		ClientID:    row.ClientID,
		Title:       row.Title,
		Description: row.Description,
		Date:        calendar.DateOf(row.Date),
		StartTime:   row.StartTime,
		EndTime:     row.EndTime,
		CreatedAt:   row.CreatedAt,
	}
}

func toScheduleSessions(rows []persistence.Session) []schedule.Session {
	out := make([]schedule.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, toScheduleSession(row))
	}
	schedule.SortSessions(out)
	return out
}

var _ schedule.SessionStore = (*SessionService)(nil)
