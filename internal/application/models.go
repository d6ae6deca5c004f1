package application

import (
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
)

// Principal represents the authenticated coach invoking a service method.
type Principal struct {
	CoachID string
}

// Client is a coach's client as shown in the dashboard list.
type Client struct {
	ID              string
	Email           string
	FullName        string
	CreatedAt       time.Time
	CurrentWeightKg *float64
}

// WeightEntry is one body-weight measurement.
type WeightEntry struct {
	ID        string
	ClientID  string
	WeightKg  float64
	Date      calendar.Date
	CreatedAt time.Time
}

// ProvisionClientInput captures the account fields typed by the coach.
type ProvisionClientInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ListClientsParams orders the client list. Sort is full_name, email or
// created_at; Order is asc or desc. Empty values mean full_name asc.
type ListClientsParams struct {
	Sort  string
	Order string
}

// AddWeightInput is a new measurement. A zero Date means today.
type AddWeightInput struct {
	WeightKg float64
	Date     calendar.Date
}
