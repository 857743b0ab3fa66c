package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mvbarbosa/destino-api/internal/search"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	searcher DestinationSearcher
	cities   CityLister
	cache    CacheAdmin
	histRead HistoryReader
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(searcher DestinationSearcher, cities CityLister, cache CacheAdmin, histRead HistoryReader, log *slog.Logger) *Handlers {
	return &Handlers{
		searcher: searcher,
		cities:   cities,
		cache:    cache,
		histRead: histRead,
		log:      log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SearchDestination handles POST /api/v1/destinations/search.
func (h *Handlers) SearchDestination(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = r.Header.Get("X-User-ID")

	resp, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		var vErr *search.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		h.log.Error("search failed", "city", req.CityName, "err", err)
		writeError(w, http.StatusNotFound, "destination not found")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListPopularCities handles GET /api/v1/cities/popular.
func (h *Handlers) ListPopularCities(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	cities, err := h.cities.ListPopular(r.Context(), limit)
	if err != nil {
		h.log.Error("listing popular cities failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

// DeleteCache handles DELETE /api/v1/destinations/{cityID}/cache.
func (h *Handlers) DeleteCache(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityID")

	if err := h.cache.Delete(r.Context(), cityID); err != nil {
		h.log.Error("cache delete failed", "cityID", cityID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete cache entry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RefreshCacheTTL handles POST /api/v1/destinations/{cityID}/cache/refresh.
func (h *Handlers) RefreshCacheTTL(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityID")
	ttl := time.Duration(queryInt(r, "ttlSeconds", 0)) * time.Second

	ok, err := h.cache.RefreshTTL(r.Context(), cityID, ttl)
	if err != nil {
		h.log.Error("cache ttl refresh failed", "cityID", cityID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to refresh cache entry")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no cached bundle for city")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// ListHistory handles GET /api/v1/history.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	records, err := h.histRead.ListByUser(r.Context(), userID, queryInt(r, "limit", 20))
	if err != nil {
		h.log.Error("listing search history failed", "userID", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]string{
			"status": func() string {
				if status == http.StatusOK {
					return "ok"
				}
				return "degraded"
			}(),
			"db":    dbStatus,
			"redis": redisStatus,
		})
	}
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}
