package persistence

import (
	"context"
	"time"
)

// ClientSort names the columns clients can be listed by.
type ClientSort string

const (
	SortByFullName  ClientSort = "full_name"
	SortByEmail     ClientSort = "email"
	SortByCreatedAt ClientSort = "created_at"
)

// ClientListOptions orders a coach's client list.
type ClientListOptions struct {
	Sort       ClientSort
	Descending bool
}

// ProfileRepository stores client accounts and their coach links.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	LinkCoach(ctx context.Context, link CoachClient) error
	IsLinked(ctx context.Context, coachID, clientID string) (bool, error)
	ListClients(ctx context.Context, coachID string, opts ClientListOptions) ([]ClientSummary, error)
}

// SessionRepository stores training sessions.
type SessionRepository interface {
	ListSessions(ctx context.Context, clientID string, from, to time.Time) ([]Session, error)
	ListSessionsOn(ctx context.Context, day time.Time) ([]Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	CreateSession(ctx context.Context, session Session) error
	UpdateSession(ctx context.Context, id string, update SessionUpdate) error
	DeleteSession(ctx context.Context, id string) error
}

// WeightRepository stores weight logs.
type WeightRepository interface {
	AddWeight(ctx context.Context, entry WeightLog) error
	ListWeights(ctx context.Context, clientID string) ([]WeightLog, error)
}

// Store bundles the repositories of one database.
type Store interface {
	Profiles() ProfileRepository
	Sessions() SessionRepository
	Weights() WeightRepository
	Close() error
}
