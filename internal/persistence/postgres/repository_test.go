package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/REMSofram/plateforme-coach/internal/persistence"
	"github.com/REMSofram/plateforme-coach/internal/testfixtures"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(sqlx.NewDb(db, "pgx")), mock
}

var sessionColumnNames = []string{"id", "client_id", "title", "description", "session_date", "start_time", "end_time", "created_at"}

func TestSessionRepository_ListSessions(t *testing.T) {
	store, mock := newMockStore(t)

	from := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	created := testfixtures.ReferenceTime()

	mock.ExpectQuery(regexp.QuoteMeta(listSessionsQuery)).
		WithArgs("client-1", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), to).
		WillReturnRows(sqlmock.NewRows(sessionColumnNames).
			AddRow("s1", "client-1", "Leg Day", "", time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), "18:00", "19:00", created))

	sessions, err := store.Sessions().ListSessions(context.Background(), "client-1", from, to)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "Leg Day", sessions[0].Title)
	require.Equal(t, "2024-06-04", sessions[0].Date.Format("2006-01-02"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_CreateMapsForeignKey(t *testing.T) {
	store, mock := newMockStore(t)

	session := testfixtures.NewSessionFixture(testfixtures.WithSessionClient("ghost")).Persistence()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "sessions_client_id_fkey"})

	err := store.Sessions().CreateSession(context.Background(), session)
	require.ErrorIs(t, err, persistence.ErrForeignKeyViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_UpdateSession(t *testing.T) {
	store, mock := newMockStore(t)

	title := "Upper body"
	date := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET title = $1, session_date = $2 WHERE id = $3")).
		WithArgs(title, date, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET title = $1 WHERE id = $2")).
		WithArgs(title, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Sessions().UpdateSession(context.Background(), "s1", persistence.SessionUpdate{Title: &title, Date: &date}))
	err := store.Sessions().UpdateSession(context.Background(), "missing", persistence.SessionUpdate{Title: &title})
	require.ErrorIs(t, err, persistence.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetAndDeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(getSessionQuery)).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(deleteSessionQuery)).WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Sessions().GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, persistence.ErrNotFound)
	require.ErrorIs(t, store.Sessions().DeleteSession(context.Background(), "missing"), persistence.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_CreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	profile := testfixtures.NewClientFixture(testfixtures.WithClientEmail(" Camille@Example.com ")).Persistence()
	mock.ExpectExec(regexp.QuoteMeta(insertProfileQuery)).
		WithArgs(profile.ID, "camille@example.com", profile.FullName, "client", "", profile.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "profiles_email_key"})

	err := store.Profiles().CreateProfile(context.Background(), profile)
	require.ErrorIs(t, err, persistence.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_ListClients(t *testing.T) {
	store, mock := newMockStore(t)

	opts := persistence.ClientListOptions{Sort: persistence.SortByEmail, Descending: true}
	created := testfixtures.ReferenceTime()
	mock.ExpectQuery(regexp.QuoteMeta(listClientsQuery(opts))).
		WithArgs("coach-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "password_hash", "created_at", "current_weight_kg"}).
			AddRow("c2", "zoe@example.com", "Zoé", "client", "", created, 61.2).
			AddRow("c1", "adam@example.com", "Adam", "client", "", created, nil))

	clients, err := store.Profiles().ListClients(context.Background(), "coach-1", opts)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	require.NotNil(t, clients[0].CurrentWeightKg)
	require.InDelta(t, 61.2, *clients[0].CurrentWeightKg, 0.001)
	require.Nil(t, clients[1].CurrentWeightKg)
	require.Contains(t, listClientsQuery(opts), "ORDER BY p.email DESC")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_IsLinked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(isLinkedQuery)).
		WithArgs("coach-1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	linked, err := store.Profiles().IsLinked(context.Background(), "coach-1", "c1")
	require.NoError(t, err)
	require.True(t, linked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeightRepository(t *testing.T) {
	store, mock := newMockStore(t)

	created := testfixtures.ReferenceTime()
	mock.ExpectExec(regexp.QuoteMeta(insertWeightQuery)).
		WillReturnError(&pgconn.PgError{Code: codeCheckViolation, ConstraintName: "weight_logs_weight_kg_check"})
	mock.ExpectQuery(regexp.QuoteMeta(listWeightsQuery)).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "weight_kg", "logged_on", "created_at"}).
			AddRow("w2", "c1", 60.5, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), created).
			AddRow("w1", "c1", 61.0, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), created))

	err := store.Weights().AddWeight(context.Background(), persistence.WeightLog{ID: "w3", ClientID: "c1", WeightKg: -1, LoggedOn: created, CreatedAt: created})
	require.ErrorIs(t, err, persistence.ErrConstraintViolation)

	entries, err := store.Weights().ListWeights(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "w2", entries[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
