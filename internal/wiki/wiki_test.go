package wiki_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvbarbosa/destino-api/internal/wiki"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func summaryPayload(title, extract string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "Município brasileiro",
		"extract":     extract,
		"content_urls": map[string]any{
			"desktop": map[string]any{"page": "https://pt.wikipedia.org/wiki/" + title},
		},
		"coordinates": map[string]any{"lat": -25.4284, "lon": -49.2733},
		"thumbnail":   map[string]any{"source": "https://upload.example/thumb.jpg"},
	}
}

func categoriesPayload() map[string]any {
	return map[string]any{
		"query": map[string]any{
			"pages": map[string]any{
				"123": map[string]any{
					"categories": []map[string]any{
						{"title": "Categoria:Municípios do Paraná"},
						{"title": "Categoria:Capitais estaduais do Brasil"},
					},
				},
			},
		},
	}
}

func TestFetch_CanonicalTitle(t *testing.T) {
	summaries := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimPrefix(r.URL.Path, "/page/summary/")
		if title != "Curitiba, PR, Brasil" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(summaryPayload("Curitiba", "Curitiba é a capital do Paraná."))
	}))
	defer summaries.Close()

	actions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(categoriesPayload())
	}))
	defer actions.Close()

	c := wiki.NewClientWithURLs(summaries.URL, actions.URL, discardLogger())

	sum, err := c.Fetch(context.Background(), "Curitiba", "PR", "Brasil")
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, "Curitiba", sum.Title)
	assert.Equal(t, "Curitiba é a capital do Paraná.", sum.Extract)
	require.NotNil(t, sum.Coordinates)
	assert.InDelta(t, -25.4284, sum.Coordinates.Latitude, 0.001)
	assert.Contains(t, sum.Categories, "Municípios do Paraná")
}

func TestFetch_FallsBackToBareName(t *testing.T) {
	var requested []string
	summaries := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimPrefix(r.URL.Path, "/page/summary/")
		requested = append(requested, title)
		if title != "Curitiba" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(summaryPayload("Curitiba", "Capital do Paraná."))
	}))
	defer summaries.Close()

	actions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(categoriesPayload())
	}))
	defer actions.Close()

	c := wiki.NewClientWithURLs(summaries.URL, actions.URL, discardLogger())

	sum, err := c.Fetch(context.Background(), "Curitiba", "PR", "Brasil")
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, []string{"Curitiba, PR, Brasil", "Curitiba"}, requested)
}

func TestFetch_NoPageIsAbsence(t *testing.T) {
	summaries := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer summaries.Close()

	c := wiki.NewClientWithURLs(summaries.URL, summaries.URL, discardLogger())

	sum, err := c.Fetch(context.Background(), "Lugar Inexistente", "XX", "Brasil")
	require.NoError(t, err, "a missing page is not a failure")
	assert.Nil(t, sum)
}

func TestFetch_EmptyExtractIsAbsence(t *testing.T) {
	summaries := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(summaryPayload("Curitiba", "   "))
	}))
	defer summaries.Close()

	c := wiki.NewClientWithURLs(summaries.URL, summaries.URL, discardLogger())

	sum, err := c.Fetch(context.Background(), "Curitiba", "PR", "Brasil")
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestFetch_CategoryFailureTolerated(t *testing.T) {
	summaries := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(summaryPayload("Curitiba", "Capital do Paraná."))
	}))
	defer summaries.Close()

	actions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer actions.Close()

	c := wiki.NewClientWithURLs(summaries.URL, actions.URL, discardLogger())

	sum, err := c.Fetch(context.Background(), "Curitiba", "PR", "Brasil")
	require.NoError(t, err, "category lookup is best effort")
	require.NotNil(t, sum)
	assert.Empty(t, sum.Categories)
}
