package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/recurrence"
)

// DefaultTitle is the placeholder title given to sessions added to a day.
const DefaultTitle = "Nouvelle séance"

// DaysPerWeek is the number of day buckets in a week window.
const DaysPerWeek = 7

// Session is a single planned training appointment for one client on one day.
type Session struct {
	ID          string
	ClientID    string
	Title       string
	Description string
	Date        calendar.Date
	StartTime   string
	EndTime     string
	CreatedAt   time.Time
}

// Fields returns the creation fields of s, without identity.
func (s Session) Fields() SessionFields {
	return SessionFields{
		ClientID:    s.ClientID,
		Title:       s.Title,
		Description: s.Description,
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
	}
}

// SessionFields is the input to session creation. The store assigns ID and CreatedAt.
type SessionFields struct {
	ClientID    string
	Title       string
	Description string
	Date        calendar.Date
	StartTime   string
	EndTime     string
}

// WithDefaults fills the placeholder title when none was supplied.
func (f SessionFields) WithDefaults() SessionFields {
	if strings.TrimSpace(f.Title) == "" {
		f.Title = DefaultTitle
	}
	return f
}

// SessionPatch is a partial update. Nil fields are left unchanged.
type SessionPatch struct {
	Title       *string
	Description *string
	Date        *calendar.Date
	StartTime   *string
	EndTime     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p SessionPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil && p.StartTime == nil && p.EndTime == nil
}

// Apply returns s with the patch fields written over it.
func (p SessionPatch) Apply(s Session) Session {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.EndTime = *p.EndTime
	}
	return s
}

// SortSessions orders sessions by CreatedAt ascending, ties broken by ID.
func SortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}

// WeekWindow is the seven consecutive days starting on a Monday.
type WeekWindow struct {
	Start calendar.Date
}

// WindowContaining returns the week window that contains day.
func WindowContaining(day calendar.Date) WeekWindow {
	return WeekWindow{Start: day.StartOfWeek()}
}

// End returns the last day of the window, inclusive.
func (w WeekWindow) End() calendar.Date {
	return w.Start.AddDays(DaysPerWeek - 1)
}

// Days returns the seven dates of the window in order.
func (w WeekWindow) Days() []calendar.Date {
	days := make([]calendar.Date, DaysPerWeek)
	for i := range days {
		days[i] = w.Start.AddDays(i)
	}
	return days
}

// Contains reports whether day lies inside the window.
func (w WeekWindow) Contains(day calendar.Date) bool {
	return day.Within(w.Start, w.End())
}

// Shift moves the window by whole weeks.
func (w WeekWindow) Shift(weeks int) WeekWindow {
	return WeekWindow{Start: w.Start.AddDays(weeks * DaysPerWeek)}
}

// RecurrencePolicy is the transient input of a duplication request.
type RecurrencePolicy = recurrence.Policy

// Day is one bucket of the week view.
type Day struct {
	Date     calendar.Date
	Sessions []Session
}
