package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvbarbosa/destino-api/internal/api"
	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/city"
	"github.com/mvbarbosa/destino-api/internal/history"
	"github.com/mvbarbosa/destino-api/internal/search"
)

const testToken = "test-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSearcher struct {
	resp *search.Response
	err  error
	got  search.Request
}

func (s *stubSearcher) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	s.got = req
	return s.resp, s.err
}

type stubLister struct {
	cities []*city.City
	err    error
}

func (s *stubLister) ListPopular(ctx context.Context, limit int) ([]*city.City, error) {
	return s.cities, s.err
}

type stubCacheAdmin struct {
	deleted   []string
	refreshed bool
}

func (s *stubCacheAdmin) Delete(ctx context.Context, cityID string) error {
	s.deleted = append(s.deleted, cityID)
	return nil
}

func (s *stubCacheAdmin) RefreshTTL(ctx context.Context, cityID string, ttl time.Duration) (bool, error) {
	return s.refreshed, nil
}

type stubHistoryReader struct {
	recs []*history.Record
}

func (s *stubHistoryReader) ListByUser(ctx context.Context, userID string, limit int) ([]*history.Record, error) {
	return s.recs, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func okPinger() pingFunc { return func(ctx context.Context) error { return nil } }

func newTestServer(t *testing.T, searcher *stubSearcher, lister *stubLister, admin *stubCacheAdmin, hist *stubHistoryReader) *httptest.Server {
	t.Helper()
	handlers := api.NewHandlers(searcher, lister, admin, hist, discardLogger())
	router := api.NewRouter(handlers, testToken, okPinger(), okPinger(), discardLogger())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func authedRequest(t *testing.T, method, url string, body []byte) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sampleResponse() *search.Response {
	b := bundle.New("city-1", 72*time.Hour)
	b.GeneratedText = "Um guia."
	return &search.Response{
		City:   &city.City{ID: "city-1", Name: "Curitiba", State: "PR"},
		Bundle: b,
		Cache:  search.CacheMeta{Cached: false, Source: "fresh"},
	}
}

func TestSearchDestination(t *testing.T) {
	searcher := &stubSearcher{resp: sampleResponse()}
	srv := newTestServer(t, searcher, &stubLister{}, &stubCacheAdmin{}, &stubHistoryReader{})

	body, _ := json.Marshal(map[string]any{"cityName": "Curitiba", "state": "PR"})
	req := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/destinations/search", body)
	req.Header.Set("X-User-ID", "user-1")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Curitiba", searcher.got.CityName)
	assert.Equal(t, "user-1", searcher.got.UserID, "user id comes from the header, not the body")

	var out search.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, "fresh", out.Cache.Source)
	assert.Equal(t, "Um guia.", out.Bundle.GeneratedText)
}

func TestSearchDestination_ValidationIs400(t *testing.T) {
	searcher := &stubSearcher{err: search.NewValidationError("cityName is required")}
	srv := newTestServer(t, searcher, &stubLister{}, &stubCacheAdmin{}, &stubHistoryReader{})

	req := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/destinations/search", []byte(`{}`))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSearchDestination_MalformedBodyIs400(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{}, &stubLister{}, &stubCacheAdmin{}, &stubHistoryReader{})

	req := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/destinations/search", []byte(`{not json`))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSearchDestination_ResolutionFailureIs404(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("destination not found")}
	srv := newTestServer(t, searcher, &stubLister{}, &stubCacheAdmin{}, &stubHistoryReader{})

	body, _ := json.Marshal(map[string]any{"cityName": "Atlântida", "state": "XX"})
	req := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/destinations/search", body)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestAuth_MissingTokenIs401(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{}, &stubLister{}, &stubCacheAdmin{}, &stubHistoryReader{})

	res, err := http.Post(srv.URL+"/api/v1/destinations/search", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestHealth_Unauthenticated(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{}, &stubLister{}, &stubCacheAdmin{}, &stubHistoryReader{})

	res, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestListPopularCities(t *testing.T) {
	lister := &stubLister{cities: []*city.City{
		{ID: "city-1", Name: "São Paulo", State: "SP", RequestCount: 50, IsPopular: true},
	}}
	srv := newTestServer(t, &stubSearcher{}, lister, &stubCacheAdmin{}, &stubHistoryReader{})

	req := authedRequest(t, http.MethodGet, srv.URL+"/api/v1/cities/popular", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		Cities []*city.City `json:"cities"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.Len(t, out.Cities, 1)
	assert.Equal(t, "São Paulo", out.Cities[0].Name)
}

func TestDeleteCache(t *testing.T) {
	admin := &stubCacheAdmin{}
	srv := newTestServer(t, &stubSearcher{}, &stubLister{}, admin, &stubHistoryReader{})

	req := authedRequest(t, http.MethodDelete, srv.URL+"/api/v1/destinations/city-1/cache", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"city-1"}, admin.deleted)
}

func TestRefreshCacheTTL_NotCachedIs404(t *testing.T) {
	admin := &stubCacheAdmin{refreshed: false}
	srv := newTestServer(t, &stubSearcher{}, &stubLister{}, admin, &stubHistoryReader{})

	req := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/destinations/city-1/cache/refresh", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestListHistory_RequiresUser(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{}, &stubLister{}, &stubCacheAdmin{}, &stubHistoryReader{})

	req := authedRequest(t, http.MethodGet, srv.URL+"/api/v1/history", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
