package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
	"github.com/REMSofram/plateforme-coach/internal/persistence/sqlite"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
	"github.com/REMSofram/plateforme-coach/internal/testfixtures"
)

func newClientService(t *testing.T, store *sqlite.Store, now time.Time) *ClientService {
	t.Helper()
	ids := testfixtures.NewIDGenerator("client")
	clock := testfixtures.NewClock(now)
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		paris = time.FixedZone("CEST", 2*60*60)
	}
	return NewClientService(store.Profiles(), store.Weights(), Argon2idHasher(fastPasswordParams), ids.NextFunc(), clock.NowFunc(), paris, nil)
}

var coach = Principal{CoachID: "coach-1"}

func validProvisionInput() ProvisionClientInput {
	return ProvisionClientInput{
		Email:     "  Lea.Durand@Example.com ",
		Password:  "motdepasse",
		FirstName: " Léa ",
		LastName:  "Durand",
	}
}

func TestClientService_ProvisionClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	svc := newClientService(t, store, testfixtures.ReferenceTime())

	client, err := svc.ProvisionClient(ctx, coach, validProvisionInput())
	if err != nil {
		t.Fatalf("ProvisionClient returned error: %v", err)
	}
	if client.Email != "lea.durand@example.com" || client.FullName != "Léa Durand" {
		t.Fatalf("expected normalized account, got %+v", client)
	}

	profile, err := store.Profiles().GetProfile(ctx, client.ID)
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if !strings.HasPrefix(profile.PasswordHash, "$argon2id$") || strings.Contains(profile.PasswordHash, "motdepasse") {
		t.Fatalf("expected an argon2id hash to be stored, got %q", profile.PasswordHash)
	}
	linked, err := store.Profiles().IsLinked(ctx, coach.CoachID, client.ID)
	if err != nil || !linked {
		t.Fatalf("expected the coach link to be created, linked=%v err=%v", linked, err)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.ProvisionClient(ctx, coach, validProvisionInput())
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := svc.ProvisionClient(ctx, coach, ProvisionClientInput{Email: "not-an-email", Password: "short"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"email", "password", "first_name", "last_name"} {
			if vErr.FieldErrors[field] == "" {
				t.Fatalf("expected %s to be reported, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("anonymous caller", func(t *testing.T) {
		if _, err := svc.ProvisionClient(ctx, Principal{}, validProvisionInput()); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestClientService_ListClients(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	svc := newClientService(t, store, testfixtures.ReferenceTime())

	zoe := seedProfile(t, store, testfixtures.WithClientName("Zoé Bernard"), testfixtures.WithClientEmail("a@example.com"))
	adam := seedProfile(t, store, testfixtures.WithClientName("adam Petit"), testfixtures.WithClientEmail("b@example.com"))
	stranger := seedProfile(t, store)
	for _, id := range []string{zoe.ID, adam.ID} {
		if err := svc.EnsureCoachLink(ctx, coach, id); err != nil {
			t.Fatalf("EnsureCoachLink returned error: %v", err)
		}
	}
	if _, err := svc.AddWeight(ctx, coach, adam.ID, AddWeightInput{WeightKg: 72.5}); err != nil {
		t.Fatalf("AddWeight returned error: %v", err)
	}

	clients, err := svc.ListClients(ctx, coach, ListClientsParams{})
	if err != nil {
		t.Fatalf("ListClients returned error: %v", err)
	}
	if len(clients) != 2 || clients[0].ID != adam.ID || clients[1].ID != zoe.ID {
		t.Fatalf("expected case-insensitive name order, got %+v", clients)
	}
	if clients[0].CurrentWeightKg == nil || *clients[0].CurrentWeightKg != 72.5 {
		t.Fatalf("expected current weight on adam, got %+v", clients[0].CurrentWeightKg)
	}
	if clients[1].CurrentWeightKg != nil {
		t.Fatalf("expected no weight on zoe")
	}
	for _, client := range clients {
		if client.ID == stranger.ID {
			t.Fatalf("unlinked clients must not be listed")
		}
	}

	byEmail, err := svc.ListClients(ctx, coach, ListClientsParams{Sort: "email", Order: "DESC"})
	if err != nil {
		t.Fatalf("ListClients returned error: %v", err)
	}
	if byEmail[0].ID != adam.ID {
		t.Fatalf("expected email descending order, got %+v", byEmail)
	}

	_, err = svc.ListClients(ctx, coach, ListClientsParams{Sort: "weight", Order: "sideways"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["sort"] == "" || vErr.FieldErrors["order"] == "" {
		t.Fatalf("expected sort and order validation errors, got %v", err)
	}
}

func TestClientService_EnsureCoachLink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	svc := newClientService(t, store, testfixtures.ReferenceTime())
	client := seedProfile(t, store)

	if err := svc.EnsureCoachLink(ctx, coach, client.ID); err != nil {
		t.Fatalf("EnsureCoachLink returned error: %v", err)
	}
	if err := svc.EnsureCoachLink(ctx, coach, client.ID); err != nil {
		t.Fatalf("second EnsureCoachLink returned error: %v", err)
	}
	if err := svc.EnsureCoachLink(ctx, coach, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.EnsureCoachLink(ctx, Principal{}, client.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClientService_Weights(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	// 23:30 UTC is already the next day in Paris.
	svc := newClientService(t, store, time.Date(2024, time.June, 3, 23, 30, 0, 0, time.UTC))
	client := seedProfile(t, store)

	today, err := svc.AddWeight(ctx, coach, client.ID, AddWeightInput{WeightKg: 80})
	if err != nil {
		t.Fatalf("AddWeight returned error: %v", err)
	}
	if today.Date.String() != "2024-06-04" {
		t.Fatalf("expected today in the configured zone, got %s", today.Date)
	}
	if _, err := svc.AddWeight(ctx, coach, client.ID, AddWeightInput{WeightKg: 81.2, Date: calendar.MustParseDate("2024-05-20")}); err != nil {
		t.Fatalf("AddWeight returned error: %v", err)
	}

	_, err = svc.AddWeight(ctx, coach, client.ID, AddWeightInput{WeightKg: 0})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["weight_kg"] == "" {
		t.Fatalf("expected weight validation error, got %v", err)
	}

	entries, err := svc.ListWeights(ctx, coach, client.ID)
	if err != nil {
		t.Fatalf("ListWeights returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].WeightKg != 80 || entries[1].Date.String() != "2024-05-20" {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	got, err := svc.GetClient(ctx, coach, client.ID)
	if err != nil {
		t.Fatalf("GetClient returned error: %v", err)
	}
	if got.CurrentWeightKg == nil || *got.CurrentWeightKg != 80 {
		t.Fatalf("expected current weight 80, got %v", got.CurrentWeightKg)
	}
}

func TestClientService_DeleteClientCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	svc := newClientService(t, store, testfixtures.ReferenceTime())
	sessions := newSessionService(t, store.Sessions(), nil)
	client := seedProfile(t, store)

	if _, err := svc.AddWeight(ctx, coach, client.ID, AddWeightInput{WeightKg: 70}); err != nil {
		t.Fatalf("AddWeight returned error: %v", err)
	}
	session, err := sessions.CreateSession(ctx, schedule.SessionFields{ClientID: client.ID, Date: testfixtures.ReferenceDate()})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	if err := svc.DeleteClient(ctx, coach, client.ID); err != nil {
		t.Fatalf("DeleteClient returned error: %v", err)
	}
	if _, err := sessions.GetSession(ctx, session.ID); !errors.Is(err, schedule.ErrSessionNotFound) {
		t.Fatalf("expected sessions to be removed with the client, got %v", err)
	}
	if _, err := svc.GetClient(ctx, coach, client.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
