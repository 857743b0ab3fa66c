package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvbarbosa/destino-api/internal/history"
)

var historyCols = []string{
	"id", "user_id", "city_id", "city_name", "state", "country",
	"travel_start_date", "travel_end_date", "created_at",
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *history.Repository) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, history.NewRepositoryWithQuerier(mock)
}

func TestCreate(t *testing.T) {
	mock, repo := newMock(t)

	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO search_history`).
		WithArgs(pgxmock.AnyArg(), "user-1", "city-1", "Curitiba", "PR", "Brasil", start, end).
		WillReturnRows(pgxmock.NewRows(historyCols).
			AddRow("rec-1", "user-1", "city-1", "Curitiba", "PR", "Brasil", start, end, now))

	rec, err := repo.Create(context.Background(), history.Record{
		UserID:          "user-1",
		CityID:          "city-1",
		CityName:        "Curitiba",
		State:           "PR",
		Country:         "Brasil",
		TravelStartDate: start,
		TravelEndDate:   end,
	})
	require.NoError(t, err)

	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "Curitiba", rec.CityName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser(t *testing.T) {
	mock, repo := newMock(t)

	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM search_history`).
		WithArgs("user-1", 20).
		WillReturnRows(pgxmock.NewRows(historyCols).
			AddRow("rec-2", "user-1", "city-2", "Fortaleza", "CE", "Brasil", start, end, now).
			AddRow("rec-1", "user-1", "city-1", "Curitiba", "PR", "Brasil", start, end, now.Add(-time.Hour)))

	recs, err := repo.ListByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, "Fortaleza", recs[0].CityName, "newest first")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_Empty(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`SELECT .+ FROM search_history`).
		WithArgs("user-9", 5).
		WillReturnRows(pgxmock.NewRows(historyCols))

	recs, err := repo.ListByUser(context.Background(), "user-9", 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
