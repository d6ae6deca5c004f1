package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/REMSofram/plateforme-coach/internal/application"
	"github.com/REMSofram/plateforme-coach/internal/calendar"
	apihttp "github.com/REMSofram/plateforme-coach/internal/http"
	"github.com/REMSofram/plateforme-coach/internal/persistence/sqlite"
	"github.com/REMSofram/plateforme-coach/internal/recurrence"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
	"github.com/REMSofram/plateforme-coach/internal/testfixtures"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newServer runs the real API over an in-memory store and returns a client
// authenticated as coach-1 together with a seeded client id.
func newServer(t *testing.T) (*Client, string) {
	t.Helper()

	ctx := context.Background()
	store, err := sqlite.Open(ctx, sqlite.InMemoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	profile := testfixtures.NewClientFixture().Persistence()
	require.NoError(t, store.Profiles().CreateProfile(ctx, profile))

	logger := quietLogger()
	clock := testfixtures.NewTickingClock(testfixtures.ReferenceTime(), time.Second)
	clients := application.NewClientService(store.Profiles(), store.Weights(), nil, testfixtures.NewIDGenerator("client").NextFunc(), clock.NowFunc(), time.UTC, logger)
	sessions := application.NewSessionService(store.Sessions(), nil, testfixtures.NewIDGenerator("session").NextFunc(), clock.NowFunc(), logger)
	authority := apihttp.NewTokenAuthority("secret", nil)

	server := httptest.NewServer(apihttp.NewRouter(apihttp.RouterConfig{
		Clients:  apihttp.NewClientHandler(clients, logger),
		Sessions: apihttp.NewSessionHandler(sessions, clients, time.UTC, logger),
		Auth:     apihttp.RequireCoach(authority, logger),
	}))
	t.Cleanup(server.Close)

	token, err := authority.Issue("coach-1", time.Hour)
	require.NoError(t, err)
	client, err := New(server.URL+"/", token, server.Client(), logger)
	require.NoError(t, err)
	return client, profile.ID
}

func TestClient_SessionStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, clientID := newServer(t)

	created, err := client.CreateSession(ctx, schedule.SessionFields{ClientID: clientID, Date: calendar.MustParseDate("2024-06-05"), StartTime: "07:30"})
	require.NoError(t, err)
	require.Equal(t, schedule.DefaultTitle, created.Title)

	title := "Mobilité"
	require.NoError(t, client.UpdateSession(ctx, created.ID, schedule.SessionPatch{Title: &title}))

	sessions, err := client.ListSessions(ctx, clientID, calendar.MustParseDate("2024-06-03"), calendar.MustParseDate("2024-06-09"))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "Mobilité", sessions[0].Title)
	require.Equal(t, "07:30", sessions[0].StartTime)

	batch, err := client.CreateSessionsBatch(ctx, []schedule.SessionFields{
		{ClientID: clientID, Title: "A", Date: calendar.MustParseDate("2024-06-06")},
		{ClientID: clientID, Title: "B", Date: calendar.MustParseDate("2024-06-07")},
	})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, client.DeleteSession(ctx, created.ID))
	require.NoError(t, client.DeleteSession(ctx, created.ID))

	missing := "x"
	err = client.UpdateSession(ctx, created.ID, schedule.SessionPatch{Title: &missing})
	require.ErrorIs(t, err, schedule.ErrSessionNotFound)

	clients, err := client.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	require.Equal(t, clientID, clients[0].ID)
}

func TestClient_DrivesBoard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, clientID := newServer(t)
	board := schedule.NewBoard(client, clientID, calendar.MustParseDate("2024-06-05"), quietLogger())
	require.NoError(t, board.Refresh(ctx))

	added, err := board.AddSession(ctx, calendar.MustParseDate("2024-06-04"))
	require.NoError(t, err)

	board.Close()
	copies, err := board.Duplicate(ctx, schedule.RecurrencePolicy{Mode: recurrence.ModeWeekly, Occurrences: 2})
	require.ErrorIs(t, err, schedule.ErrNoSelection)
	require.Empty(t, copies)

	selected, err := board.Click(added.ID)
	require.NoError(t, err)
	require.True(t, selected)
	copies, err = board.Duplicate(ctx, schedule.RecurrencePolicy{Mode: recurrence.ModeWeekly, Occurrences: 2})
	require.NoError(t, err)
	require.Len(t, copies, 2)

	stored, err := client.ListSessions(ctx, clientID, calendar.MustParseDate("2024-06-01"), calendar.MustParseDate("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, stored, 3)
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "validation",
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"Certains champs sont invalides.","errors":{"date":"Ce champ est obligatoire."}}`,
			check: func(t *testing.T, err error) {
				var vErr *schedule.ValidationError
				require.ErrorAs(t, err, &vErr)
				require.Equal(t, "Ce champ est obligatoire.", vErr.FieldErrors["date"])
			},
		},
		{
			name:   "unknown client",
			status: http.StatusNotFound,
			body:   `{"message":"Ressource introuvable."}`,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, schedule.ErrStoreUnavailable)
				require.ErrorIs(t, err, ErrClientNotFound)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"message":"Jeton manquant."}`,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, schedule.ErrStoreUnavailable)
				require.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "server failure",
			status: http.StatusServiceUnavailable,
			body:   `{"message":"indisponible"}`,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, schedule.ErrStoreUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client, err := New(server.URL, "token", server.Client(), quietLogger())
			require.NoError(t, err)
			_, err = client.CreateSession(context.Background(), schedule.SessionFields{ClientID: "c1", Date: calendar.MustParseDate("2024-06-05")})
			tt.check(t, err)
		})
	}
}

func TestClient_PartialBatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/clients/c1/sessions/batch", r.URL.Path)
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, `{"requested":2,"created":1,"sessions":[{"id":"s1","client_id":"c1","date":"2024-06-05"}]}`)
	}))
	defer server.Close()

	client, err := New(server.URL, "token", server.Client(), quietLogger())
	require.NoError(t, err)

	created, err := client.CreateSessionsBatch(context.Background(), []schedule.SessionFields{
		{ClientID: "c1", Date: calendar.MustParseDate("2024-06-05")},
		{ClientID: "c1", Date: calendar.MustParseDate("2024-06-06")},
	})
	var partial *schedule.PartialBatchFailure
	require.ErrorAs(t, err, &partial)
	require.Equal(t, 2, partial.Requested)
	require.Equal(t, 1, partial.Created)
	require.Len(t, created, 1)
	require.Equal(t, "s1", created[0].ID)
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(url, "", nil, quietLogger())
	require.NoError(t, err)
	err = client.DeleteSession(context.Background(), "s1")
	require.ErrorIs(t, err, schedule.ErrStoreUnavailable)
	require.False(t, errors.Is(err, schedule.ErrSessionNotFound))

	_, err = New("not a url", "", nil, nil)
	require.Error(t, err)
}
