package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/api"
	"github.com/REMSofram/plateforme-coach/internal/application"
	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/ics"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

// calendarSpanDays is the default ICS window when the query omits "to".
const calendarSpanDays = 28

type sessionService interface {
	ListSessions(ctx context.Context, clientID string, from, to calendar.Date) ([]schedule.Session, error)
	GetSession(ctx context.Context, id string) (schedule.Session, error)
	CreateSession(ctx context.Context, fields schedule.SessionFields) (schedule.Session, error)
	CreateSessionsBatch(ctx context.Context, fields []schedule.SessionFields) ([]schedule.Session, error)
	UpdateSession(ctx context.Context, id string, patch schedule.SessionPatch) error
	DeleteSession(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string, policy schedule.RecurrencePolicy) ([]schedule.Session, error)
	Week(ctx context.Context, clientID string, day calendar.Date) ([]schedule.Day, error)
}

type coachLinker interface {
	EnsureCoachLink(ctx context.Context, principal application.Principal, clientID string) error
}

// SessionHandler serves a client's sessions. Every route first checks that
// the coach is linked to the client owning the sessions.
type SessionHandler struct {
	sessions  sessionService
	clients   coachLinker
	location  *time.Location
	now       func() time.Time
	validator requestValidator
	responder responder
	logger    *slog.Logger
}

// NewSessionHandler wires the session routes. location decides what "today"
// means for default week and calendar windows.
func NewSessionHandler(sessions sessionService, clients coachLinker, location *time.Location, logger *slog.Logger) *SessionHandler {
	if location == nil {
		location = time.UTC
	}
	base := defaultLogger(logger)
	return &SessionHandler{
		sessions:  sessions,
		clients:   clients,
		location:  location,
		now:       time.Now,
		validator: newRequestValidator(),
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.sessions == nil || h.clients == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// authorizeClient resolves {clientID} and checks the coach link. It writes
// the error response itself and returns false on failure.
func (h *SessionHandler) authorizeClient(w http.ResponseWriter, r *http.Request, operation string) (string, *slog.Logger, bool) {
	clientID := r.PathValue("clientID")
	logger := h.log(r.Context(), operation, "client_id", clientID)

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.clients.EnsureCoachLink(r.Context(), principal, clientID); err != nil {
		logger.WarnContext(r.Context(), "client access denied", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return "", logger, false
	}
	return clientID, logger, true
}

// authorizeSession loads {sessionID} and checks the coach link of its client.
func (h *SessionHandler) authorizeSession(ctx context.Context, sessionID string) (schedule.Session, error) {
	session, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return schedule.Session{}, err
	}
	principal, _ := PrincipalFromContext(ctx)
	if err := h.clients.EnsureCoachLink(ctx, principal, session.ClientID); err != nil {
		return schedule.Session{}, err
	}
	return session, nil
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	clientID, logger, ok := h.authorizeClient(w, r, "List")
	if !ok {
		return
	}

	from, fromErr := calendar.ParseDate(r.URL.Query().Get("from"))
	to, toErr := calendar.ParseDate(r.URL.Query().Get("to"))
	if fromErr != nil || toErr != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	if to.Before(from) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateRange)
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), clientID, from, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "session listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, api.SessionsResponse{Sessions: api.FromSessions(sessions)})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	clientID, logger, ok := h.authorizeClient(w, r, "Create")
	if !ok {
		return
	}

	var req api.SessionInput
	if err := h.validator.decode(r, &req); err != nil {
		logger.WarnContext(r.Context(), "invalid session request", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), req.Fields(clientID))
	if err != nil {
		logger.ErrorContext(r.Context(), "session creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, api.SessionResponse{Session: api.FromSession(session)})
}

func (h *SessionHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	clientID, logger, ok := h.authorizeClient(w, r, "CreateBatch")
	if !ok {
		return
	}

	var req api.BatchRequest
	if err := h.validator.decode(r, &req); err != nil {
		logger.WarnContext(r.Context(), "invalid batch request", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	fields := make([]schedule.SessionFields, 0, len(req.Sessions))
	for _, input := range req.Sessions {
		fields = append(fields, input.Fields(clientID))
	}
	created, err := h.sessions.CreateSessionsBatch(r.Context(), fields)
	if err == nil {
		logger.InfoContext(r.Context(), "session batch created", "count", len(created))
	}
	h.responder.writeBatch(r.Context(), w, len(fields), created, err)
}

func (h *SessionHandler) Week(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	clientID, logger, ok := h.authorizeClient(w, r, "Week")
	if !ok {
		return
	}

	day, ok := h.dateParam(w, r, "start", calendar.Today(h.now, h.location))
	if !ok {
		return
	}

	days, err := h.sessions.Week(r.Context(), clientID, day)
	if err != nil {
		logger.ErrorContext(r.Context(), "week load failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	window := schedule.WindowContaining(day)
	resp := api.WeekResponse{Start: window.Start, End: window.End(), Days: make([]api.Day, 0, len(days))}
	for _, bucket := range days {
		resp.Days = append(resp.Days, api.Day{Date: bucket.Date, Sessions: api.FromSessions(bucket.Sessions)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *SessionHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	clientID, logger, ok := h.authorizeClient(w, r, "Calendar")
	if !ok {
		return
	}

	from, ok := h.dateParam(w, r, "from", calendar.Today(h.now, h.location).StartOfWeek())
	if !ok {
		return
	}
	to, ok := h.dateParam(w, r, "to", from.AddDays(calendarSpanDays-1))
	if !ok {
		return
	}
	if to.Before(from) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateRange)
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), clientID, from, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	body := ics.Export(sessions, ics.Options{Name: "Séances", Location: h.location, Now: h.now()})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="seances.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write calendar", "error", err)
	}
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessionID := r.PathValue("sessionID")
	logger := h.log(r.Context(), "Update", "session_id", sessionID)

	var req api.SessionPatch
	if err := h.validator.decode(r, &req); err != nil {
		logger.WarnContext(r.Context(), "invalid session patch", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if _, err := h.authorizeSession(r.Context(), sessionID); err != nil {
		logger.WarnContext(r.Context(), "session access denied", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := h.sessions.UpdateSession(r.Context(), sessionID, req.Schedule()); err != nil {
		logger.ErrorContext(r.Context(), "session update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	updated, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, api.SessionResponse{Session: api.FromSession(updated)})
}

// Delete is idempotent: a session that no longer exists answers 204.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessionID := r.PathValue("sessionID")
	logger := h.log(r.Context(), "Delete", "session_id", sessionID)

	if _, err := h.authorizeSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, schedule.ErrSessionNotFound) {
			h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
			return
		}
		logger.WarnContext(r.Context(), "session access denied", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := h.sessions.DeleteSession(r.Context(), sessionID); err != nil && !errors.Is(err, schedule.ErrSessionNotFound) {
		logger.ErrorContext(r.Context(), "session deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sessionID := r.PathValue("sessionID")
	logger := h.log(r.Context(), "Duplicate", "session_id", sessionID)

	var req api.DuplicateRequest
	if err := h.validator.decode(r, &req); err != nil {
		logger.WarnContext(r.Context(), "invalid duplicate request", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if _, err := h.authorizeSession(r.Context(), sessionID); err != nil {
		logger.WarnContext(r.Context(), "session access denied", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	created, err := h.sessions.Duplicate(r.Context(), sessionID, req.Policy())
	if err == nil {
		logger.InfoContext(r.Context(), "session duplicated", "mode", req.Mode, "count", len(created))
	}
	h.responder.writeBatch(r.Context(), w, len(created), created, err)
}

// dateParam reads an optional YYYY-MM-DD query parameter.
func (h *SessionHandler) dateParam(w http.ResponseWriter, r *http.Request, name string, fallback calendar.Date) (calendar.Date, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, true
	}
	day, err := calendar.ParseDate(raw)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return calendar.Date{}, false
	}
	return day, true
}
