package city_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvbarbosa/destino-api/internal/city"
)

var cityCols = []string{
	"id", "name", "state", "country", "slug", "latitude", "longitude",
	"request_count", "is_popular", "last_updated", "created_at",
}

func newMockRepo(t *testing.T) (*city.Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return city.NewRepositoryWithQuerier(mock), mock
}

func cityRow(id string, count int64, popular bool) *pgxmock.Rows {
	now := time.Now()
	var lat, lon *float64
	return pgxmock.NewRows(cityCols).
		AddRow(id, "Curitiba", "PR", "Brasil", "curitiba-pr", lat, lon, count, popular, now, now)
}

func TestRepository_FindBySlug(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM cities WHERE slug = \$1`).
		WithArgs("curitiba-pr").
		WillReturnRows(cityRow("city-1", 3, false))

	c, err := repo.FindBySlug(context.Background(), "curitiba-pr")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "city-1", c.ID)
	assert.Equal(t, "Curitiba", c.Name)
	assert.Nil(t, c.Coordinates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindBySlug_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM cities WHERE slug = \$1`).
		WithArgs("nowhere-xx").
		WillReturnRows(pgxmock.NewRows(cityCols))

	c, err := repo.FindBySlug(context.Background(), "nowhere-xx")
	require.NoError(t, err, "not found must be nil, nil")
	assert.Nil(t, c)
}

func TestRepository_Create_ReturnsExistingOnConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO cities`).
		WithArgs(pgxmock.AnyArg(), "Curitiba", "PR", "Brasil", "curitiba-pr").
		WillReturnRows(cityRow("city-existing", 7, false))

	c, err := repo.Create(context.Background(), "Curitiba", "PR", "Brasil")
	require.NoError(t, err)
	assert.Equal(t, "city-existing", c.ID, "conflicting slug returns the existing record")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_IncrementRequestCount_CrossesThreshold(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE cities`).
		WithArgs("city-1", city.PopularityThreshold).
		WillReturnRows(cityRow("city-1", int64(city.PopularityThreshold), true))

	c, err := repo.IncrementRequestCount(context.Background(), "city-1")
	require.NoError(t, err)
	assert.True(t, c.IsPopular)
	assert.EqualValues(t, city.PopularityThreshold, c.RequestCount)
}

func TestRepository_ListPopular(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	rows := pgxmock.NewRows(cityCols).
		AddRow("city-1", "São Paulo", "SP", "Brasil", "sao-paulo-sp", (*float64)(nil), (*float64)(nil), int64(50), true, now, now).
		AddRow("city-2", "Curitiba", "PR", "Brasil", "curitiba-pr", (*float64)(nil), (*float64)(nil), int64(12), true, now, now)

	mock.ExpectQuery(`SELECT .+ FROM cities ORDER BY request_count DESC`).
		WithArgs(10).
		WillReturnRows(rows)

	cities, err := repo.ListPopular(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "São Paulo", cities[0].Name)
}
