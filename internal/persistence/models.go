package persistence

import "time"

// Role distinguishes client accounts from coach accounts in profiles.
type Role string

const (
	RoleClient Role = "client"
	RoleCoach  Role = "coach"
)

// Profile is an account row. Coaches are usually only referenced by id.
type Profile struct {
	ID           string
	Email        string
	FullName     string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// CoachClient links a coach to one of their clients.
type CoachClient struct {
	CoachID   string
	ClientID  string
	CreatedAt time.Time
}

// Session is a stored training session. Date carries the calendar day at
// midnight UTC.
type Session struct {
	ID          string
	ClientID    string
	Title       string
	Description string
	Date        time.Time
	StartTime   string
	EndTime     string
	CreatedAt   time.Time
}

// SessionUpdate lists the columns to overwrite. Nil fields are left as stored.
type SessionUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
	StartTime   *string
	EndTime     *string
}

// IsEmpty reports whether the update touches no column.
func (u SessionUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Date == nil && u.StartTime == nil && u.EndTime == nil
}

// WeightLog is one body-weight measurement of a client.
type WeightLog struct {
	ID        string
	ClientID  string
	WeightKg  float64
	LoggedOn  time.Time
	CreatedAt time.Time
}

// ClientSummary is a coach's client together with the latest weight entry.
type ClientSummary struct {
	Profile
	CurrentWeightKg *float64
}
