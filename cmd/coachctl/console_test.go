package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/REMSofram/plateforme-coach/internal/api"
	"github.com/REMSofram/plateforme-coach/internal/testfixtures"
)

type stubClients struct {
	clients []api.Client
	err     error
}

func (s stubClients) ListClients(context.Context) ([]api.Client, error) {
	return s.clients, s.err
}

func newTestConsole(t *testing.T) (*console, *testfixtures.SessionStore, *bytes.Buffer) {
	t.Helper()
	store := testfixtures.NewSessionStore()
	store.Seed(testfixtures.NewSessionFixture(
		testfixtures.WithSessionID("s-1"),
		testfixtures.WithSessionTitle("Cardio"),
		testfixtures.WithSessionDate("2024-06-04"),
		testfixtures.WithSessionTimes("07:30", "08:15"),
	).Schedule())
	out := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newConsole(store, stubClients{}, out, testfixtures.ReferenceDate(), logger), store, out
}

func TestConsole_RequiresClient(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestConsole(t)
	require.ErrorIs(t, c.execute(context.Background(), "add 2024-06-05"), errNoClient)
	require.ErrorIs(t, c.execute(context.Background(), "bogus"), errUsage)
	require.NoError(t, c.execute(context.Background(), "   "))
}

func TestConsole_EditingSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, store, out := newTestConsole(t)

	require.NoError(t, c.execute(ctx, "use client-1"))
	require.Contains(t, out.String(), "Semaine du 2024-06-03 au 2024-06-09")
	require.Contains(t, out.String(), "[s-1] 07:30-08:15 Cardio")

	require.NoError(t, c.execute(ctx, "move s-1 2024-06-04 2024-06-06"))
	moved, ok := store.Get("s-1")
	require.True(t, ok)
	require.Equal(t, "2024-06-06", moved.Date.String())

	require.NoError(t, c.execute(ctx, "select s-1"))
	require.Contains(t, out.String(), "* [s-1]")

	require.NoError(t, c.execute(ctx, "title Jambes et gainage"))
	edited, _ := store.Get("s-1")
	require.Equal(t, "Jambes et gainage", edited.Title)

	require.NoError(t, c.execute(ctx, "dup weekly 2"))
	require.Equal(t, 3, store.Len())

	require.NoError(t, c.execute(ctx, "delete"))
	require.Contains(t, out.String(), "confirm | cancel")
	require.NoError(t, c.execute(ctx, "confirm"))
	require.Equal(t, 2, store.Len())
	_, ok = store.Get("s-1")
	require.False(t, ok)

	require.NoError(t, c.execute(ctx, "next"))
	require.Contains(t, out.String(), "Semaine du 2024-06-10 au 2024-06-16")
	require.Contains(t, out.String(), "Jambes et gainage")
}

func TestConsole_LoopPrintsNoticesAndStops(t *testing.T) {
	t.Parallel()

	c, store, out := newTestConsole(t)
	input := strings.NewReader("help\nuse client-1\nconfirm\nbogus\nquit\nadd 2024-06-05\n")

	require.NoError(t, c.loop(context.Background(), input))
	require.Contains(t, out.String(), "Commandes :")
	require.Contains(t, out.String(), "[error] Aucune séance sélectionnée.")
	require.Contains(t, out.String(), "commande invalide")
	require.Equal(t, 1, store.Len(), "commands after quit must not run")
}

func TestConsole_Clients(t *testing.T) {
	t.Parallel()

	c, _, out := newTestConsole(t)
	weight := 72.5
	c.clients = stubClients{clients: []api.Client{
		{ID: "client-1", FullName: "Léa Martin", Email: "lea@example.com", CurrentWeightKg: &weight},
		{ID: "client-2", FullName: "Tom Petit", Email: "tom@example.com"},
	}}

	require.NoError(t, c.execute(context.Background(), "clients"))
	require.Contains(t, out.String(), "Léa Martin")
	require.Contains(t, out.String(), "72.5 kg")

	c.clients = stubClients{err: errors.New("boom")}
	require.Error(t, c.execute(context.Background(), "clients"))
}

func TestConsole_Token(t *testing.T) {
	t.Parallel()

	c, _, out := newTestConsole(t)
	require.Error(t, c.execute(context.Background(), "token coach-1"))

	var received string
	c.secret = "dev-secret"
	c.onToken = func(token string) { received = token }
	require.NoError(t, c.execute(context.Background(), "token coach-1"))
	require.NotEmpty(t, received)
	require.Contains(t, out.String(), received)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	policy, err := parsePolicy([]string{"Monthly", "3", "2024-07-01"})
	require.NoError(t, err)
	require.EqualValues(t, "monthly", policy.Mode)
	require.Equal(t, 3, policy.Occurrences)
	require.Equal(t, "2024-07-01", policy.AnchorDate.String())

	_, err = parsePolicy([]string{"weekly", "x"})
	require.ErrorIs(t, err, errUsage)
	_, err = parsePolicy(nil)
	require.ErrorIs(t, err, errUsage)
}

func TestConsole_FlagsOverlappingSessions(t *testing.T) {
	t.Parallel()

	c, store, out := newTestConsole(t)
	store.Seed(testfixtures.NewSessionFixture(
		testfixtures.WithSessionID("s-2"),
		testfixtures.WithSessionTitle("Mobilité"),
		testfixtures.WithSessionDate("2024-06-04"),
		testfixtures.WithSessionTimes("08:00", "08:30"),
	).Schedule())

	require.NoError(t, c.execute(context.Background(), "use client-1"))
	require.Contains(t, out.String(), "Cardio (chevauchement)")
	require.Contains(t, out.String(), "Mobilité (chevauchement)")
}
