// Package api holds the JSON payloads exchanged between the HTTP server and
// its clients.
package api

import (
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/recurrence"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

// Session is the wire form of a session.
type Session struct {
	ID          string        `json:"id"`
	ClientID    string        `json:"client_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        calendar.Date `json:"date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	CreatedAt   time.Time     `json:"created_at"`
}

// FromSession converts a scheduler session.
func FromSession(s schedule.Session) Session {
	return Session{
		ID:          s.ID,
		ClientID:    s.ClientID,
		Title:       s.Title,
		Description: s.Description,
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		CreatedAt:   s.CreatedAt,
	}
}

// FromSessions converts a slice, never returning nil.
func FromSessions(sessions []schedule.Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, FromSession(s))
	}
	return out
}

// Schedule converts back to a scheduler session.
func (s Session) Schedule() schedule.Session {
	return schedule.Session{
		ID:          s.ID,
		ClientID:    s.ClientID,
		Title:       s.Title,
		Description: s.Description,
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		CreatedAt:   s.CreatedAt,
	}
}

// SessionInput creates one session. The client comes from the URL.
type SessionInput struct {
	Title       string         `json:"title" validate:"max=200"`
	Description string         `json:"description" validate:"max=4000"`
	Date        *calendar.Date `json:"date" validate:"required"`
	StartTime   string         `json:"start_time" validate:"omitempty,clock"`
	EndTime     string         `json:"end_time" validate:"omitempty,clock"`
}

// FromFields builds the input for fields.
func FromFields(f schedule.SessionFields) SessionInput {
	date := f.Date
	return SessionInput{
		Title:       f.Title,
		Description: f.Description,
		Date:        &date,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
	}
}

// Fields converts the input for clientID.
func (in SessionInput) Fields(clientID string) schedule.SessionFields {
	fields := schedule.SessionFields{
		ClientID:    clientID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	}
	if in.Date != nil {
		fields.Date = *in.Date
	}
	return fields
}

// BatchRequest creates several sessions for one client.
type BatchRequest struct {
	Sessions []SessionInput `json:"sessions" validate:"required,min=1,max=100,dive"`
}

// SessionPatch changes some fields of a session. Absent fields are kept.
type SessionPatch struct {
	Title       *string        `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=4000"`
	Date        *calendar.Date `json:"date,omitempty"`
	StartTime   *string        `json:"start_time,omitempty" validate:"omitempty,clock"`
	EndTime     *string        `json:"end_time,omitempty" validate:"omitempty,clock"`
}

// FromPatch converts a scheduler patch.
func FromPatch(p schedule.SessionPatch) SessionPatch {
	return SessionPatch{
		Title:       p.Title,
		Description: p.Description,
		Date:        p.Date,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
	}
}

// Schedule converts to a scheduler patch.
func (p SessionPatch) Schedule() schedule.SessionPatch {
	return schedule.SessionPatch{
		Title:       p.Title,
		Description: p.Description,
		Date:        p.Date,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
	}
}

// DuplicateRequest asks the server to copy a session.
type DuplicateRequest struct {
	Mode        string         `json:"mode" validate:"omitempty,oneof=none weekly biweekly monthly"`
	Occurrences int            `json:"occurrences" validate:"omitempty,min=1,max=12"`
	AnchorDate  *calendar.Date `json:"anchor_date,omitempty"`
}

// Policy converts the request to a recurrence policy.
func (r DuplicateRequest) Policy() recurrence.Policy {
	policy := recurrence.Policy{Mode: recurrence.Mode(r.Mode), Occurrences: r.Occurrences}
	if r.AnchorDate != nil {
		policy.AnchorDate = *r.AnchorDate
	}
	return policy
}

// SessionsResponse wraps a session list.
type SessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionResponse wraps one session.
type SessionResponse struct {
	Session Session `json:"session"`
}

// BatchResponse reports a batch creation. Requested and Created differ on a
// partial result.
type BatchResponse struct {
	Requested int       `json:"requested"`
	Created   int       `json:"created"`
	Sessions  []Session `json:"sessions"`
}

// Day is one bucket of a week.
type Day struct {
	Date     calendar.Date `json:"date"`
	Sessions []Session     `json:"sessions"`
}

// WeekResponse is the seven-day board of a client.
type WeekResponse struct {
	Start calendar.Date `json:"start"`
	End   calendar.Date `json:"end"`
	Days  []Day         `json:"days"`
}

// Client is the wire form of a coach's client.
type Client struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	CreatedAt       time.Time `json:"created_at"`
	CurrentWeightKg *float64  `json:"current_weight_kg"`
}

// ClientsResponse wraps a client list.
type ClientsResponse struct {
	Clients []Client `json:"clients"`
}

// ClientResponse wraps one client.
type ClientResponse struct {
	Client Client `json:"client"`
}

// ProvisionClientRequest creates a client account.
type ProvisionClientRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// WeightEntry is the wire form of a weight log.
type WeightEntry struct {
	ID        string        `json:"id"`
	ClientID  string        `json:"client_id"`
	WeightKg  float64       `json:"weight_kg"`
	Date      calendar.Date `json:"date"`
	CreatedAt time.Time     `json:"created_at"`
}

// WeightsResponse wraps a weight list.
type WeightsResponse struct {
	Weights []WeightEntry `json:"weights"`
}

// AddWeightRequest logs a measurement. A missing date means today.
type AddWeightRequest struct {
	WeightKg float64        `json:"weight_kg" validate:"gt=0,lt=1000"`
	Date     *calendar.Date `json:"date,omitempty"`
}

// ErrorResponse is returned with every 4xx and 5xx status.
type ErrorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
