package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/persistence"
)

// ClientService manages a coach's clients and their weight logs.
type ClientService struct {
	profiles     persistence.ProfileRepository
	weights      persistence.WeightRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	location     *time.Location
	logger       *slog.Logger
}

// NewClientService wires dependencies for client operations. location is the
// zone "today" is computed in for weight entries.
func NewClientService(profiles persistence.ProfileRepository, weights persistence.WeightRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *ClientService {
	if hashPassword == nil {
		hashPassword = Argon2idHasher(DefaultPasswordParams)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ClientService{
		profiles:     profiles,
		weights:      weights,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		location:     location,
		logger:       defaultLogger(logger),
	}
}

func (s *ClientService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ClientService", operation, attrs...)
}

// ListClients returns the coach's clients with their current weight.
func (s *ClientService) ListClients(ctx context.Context, principal Principal, params ListClientsParams) ([]Client, error) {
	if s == nil {
		return nil, fmt.Errorf("ClientService is nil")
	}
	if principal.CoachID == "" {
		return nil, ErrUnauthorized
	}

	opts, vErr := parseListClientsParams(params)
	if vErr.HasErrors() {
		return nil, vErr
	}

	rows, err := s.profiles.ListClients(ctx, principal.CoachID, opts)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]Client, 0, len(rows))
	for _, row := range rows {
		client := toClient(row.Profile)
		client.CurrentWeightKg = row.CurrentWeightKg
		out = append(out, client)
	}
	return out, nil
}

// EnsureCoachLink authorizes the coach on clientID. An existing client that is
// not yet linked to the coach gets linked.
func (s *ClientService) EnsureCoachLink(ctx context.Context, principal Principal, clientID string) error {
	if s == nil {
		return fmt.Errorf("ClientService is nil")
	}
	if principal.CoachID == "" {
		return ErrUnauthorized
	}

	profile, err := s.profiles.GetProfile(ctx, clientID)
	if err != nil {
		return mapRepoError(err)
	}
	if profile.Role != persistence.RoleClient {
		return ErrNotFound
	}

	linked, err := s.profiles.IsLinked(ctx, principal.CoachID, clientID)
	if err != nil {
		return mapRepoError(err)
	}
	if linked {
		return nil
	}

	if err := s.profiles.LinkCoach(ctx, persistence.CoachClient{CoachID: principal.CoachID, ClientID: clientID, CreatedAt: s.now().UTC()}); err != nil {
		return mapRepoError(err)
	}
	s.loggerWith(ctx, "EnsureCoachLink", "coach_id", principal.CoachID, "client_id", clientID).
		InfoContext(ctx, "coach linked to existing client")
	return nil
}

// GetClient returns one client with the current weight.
func (s *ClientService) GetClient(ctx context.Context, principal Principal, clientID string) (Client, error) {
	if err := s.EnsureCoachLink(ctx, principal, clientID); err != nil {
		return Client{}, err
	}

	profile, err := s.profiles.GetProfile(ctx, clientID)
	if err != nil {
		return Client{}, mapRepoError(err)
	}
	client := toClient(profile)

	logs, err := s.weights.ListWeights(ctx, clientID)
	if err != nil {
		return Client{}, mapRepoError(err)
	}
	if len(logs) > 0 {
		current := logs[0].WeightKg
		client.CurrentWeightKg = &current
	}
	return client, nil
}

// ProvisionClient creates a client account and links it to the coach.
func (s *ClientService) ProvisionClient(ctx context.Context, principal Principal, input ProvisionClientInput) (client Client, err error) {
	if s == nil {
		return Client{}, fmt.Errorf("ClientService is nil")
	}
	if principal.CoachID == "" {
		return Client{}, ErrUnauthorized
	}

	normalized := normalizeProvisionInput(input)
	logger := s.loggerWith(ctx, "ProvisionClient", "coach_id", principal.CoachID, "email", normalized.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to provision client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client provisioned", "client_id", client.ID)
	}()

	if vErr := validateProvisionInput(normalized); vErr.HasErrors() {
		return Client{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return Client{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	profile := persistence.Profile{
		ID:           s.idGenerator(),
		Email:        normalized.Email,
		FullName:     normalized.FirstName + " " + normalized.LastName,
		Role:         persistence.RoleClient,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err = s.profiles.CreateProfile(ctx, profile); err != nil {
		return Client{}, mapRepoError(err)
	}
	if err = s.profiles.LinkCoach(ctx, persistence.CoachClient{CoachID: principal.CoachID, ClientID: profile.ID, CreatedAt: now}); err != nil {
		return Client{}, mapRepoError(err)
	}
	return toClient(profile), nil
}

// DeleteClient removes the client together with sessions, weights and links.
func (s *ClientService) DeleteClient(ctx context.Context, principal Principal, clientID string) (err error) {
	logger := s.loggerWith(ctx, "DeleteClient", "coach_id", principal.CoachID, "client_id", clientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client deleted")
	}()

	if err = s.EnsureCoachLink(ctx, principal, clientID); err != nil {
		return err
	}
	if err = s.profiles.DeleteProfile(ctx, clientID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// AddWeight records a measurement for the client.
func (s *ClientService) AddWeight(ctx context.Context, principal Principal, clientID string, input AddWeightInput) (WeightEntry, error) {
	if err := s.EnsureCoachLink(ctx, principal, clientID); err != nil {
		return WeightEntry{}, err
	}

	vErr := &ValidationError{}
	if input.WeightKg <= 0 {
		vErr.add("weight_kg", "weight must be greater than zero")
	}
	if vErr.HasErrors() {
		return WeightEntry{}, vErr
	}

	day := input.Date
	if day.IsZero() {
		day = calendar.Today(s.now, s.location)
	}
	entry := persistence.WeightLog{
		ID:        s.idGenerator(),
		ClientID:  clientID,
		WeightKg:  input.WeightKg,
		LoggedOn:  day.Time(time.UTC),
		CreatedAt: s.now().UTC(),
	}
	if err := s.weights.AddWeight(ctx, entry); err != nil {
		return WeightEntry{}, mapRepoError(err)
	}
	s.loggerWith(ctx, "AddWeight", "client_id", clientID).
		InfoContext(ctx, "weight logged", "weight_kg", entry.WeightKg, "date", day.String())
	return toWeightEntry(entry), nil
}

// ListWeights returns the client's measurements, newest first.
func (s *ClientService) ListWeights(ctx context.Context, principal Principal, clientID string) ([]WeightEntry, error) {
	if err := s.EnsureCoachLink(ctx, principal, clientID); err != nil {
		return nil, err
	}
	logs, err := s.weights.ListWeights(ctx, clientID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]WeightEntry, 0, len(logs))
	for _, entry := range logs {
		out = append(out, toWeightEntry(entry))
	}
	return out, nil
}

func parseListClientsParams(params ListClientsParams) (persistence.ClientListOptions, *ValidationError) {
	vErr := &ValidationError{}
	opts := persistence.ClientListOptions{Sort: persistence.SortByFullName}

	switch sortBy := persistence.ClientSort(strings.ToLower(strings.TrimSpace(params.Sort))); sortBy {
	case "":
	case persistence.SortByFullName, persistence.SortByEmail, persistence.SortByCreatedAt:
		opts.Sort = sortBy
	default:
		vErr.add("sort", "sort must be full_name, email or created_at")
	}

	switch strings.ToLower(strings.TrimSpace(params.Order)) {
	case "", "asc":
	case "desc":
		opts.Descending = true
	default:
		vErr.add("order", "order must be asc or desc")
	}
	return opts, vErr
}

func normalizeProvisionInput(input ProvisionClientInput) ProvisionClientInput {
	return ProvisionClientInput{
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Password:  input.Password,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
	}
}

func validateProvisionInput(input ProvisionClientInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if len(input.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if input.FirstName == "" {
		vErr.add("first_name", "first name is required")
	}
	if input.LastName == "" {
		vErr.add("last_name", "last name is required")
	}
	return vErr
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound), errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "value rejected by storage")
		return vErr
	default:
		return err
	}
}

func toClient(profile persistence.Profile) Client {
	return Client{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		CreatedAt: profile.CreatedAt,
	}
}

func toWeightEntry(entry persistence.WeightLog) WeightEntry {
	return WeightEntry{
		ID:        entry.ID,
		ClientID:  entry.ClientID,
		WeightKg:  entry.WeightKg,
		Date:      calendar.DateOf(entry.LoggedOn),
		CreatedAt: entry.CreatedAt,
	}
}
