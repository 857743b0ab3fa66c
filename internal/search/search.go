// Package search is the aggregation pipeline: it resolves the destination
// city, consults the bundle cache, fans out to the info providers on a miss,
// merges whatever came back, generates the narrative, and decides whether the
// result is worth caching.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/cache"
	"github.com/mvbarbosa/destino-api/internal/city"
	"github.com/mvbarbosa/destino-api/internal/costs"
	"github.com/mvbarbosa/destino-api/internal/geo"
	"github.com/mvbarbosa/destino-api/internal/history"
	"github.com/mvbarbosa/destino-api/internal/weather"
	"github.com/mvbarbosa/destino-api/internal/wiki"
)

const (
	// Per-provider budget inside the fan-out. A provider that cannot answer
	// in time is treated like any other provider failure.
	providerTimeout = 10 * time.Second

	defaultForecastDays = 5
	defaultTripDays     = 7
	defaultOrigin       = "São Paulo"
)

// ValidationError marks caller mistakes, as opposed to resolution or
// downstream failures.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// NewValidationError builds a ValidationError with a fixed message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Request is a destination search as received from the API layer.
type Request struct {
	CityName        string     `json:"cityName"`
	State           string     `json:"state"`
	Country         string     `json:"country,omitempty"`
	Origin          string     `json:"origin,omitempty"`
	TravelStartDate *time.Time `json:"travelStartDate,omitempty"`
	TravelEndDate   *time.Time `json:"travelEndDate,omitempty"`
	ForecastDays    int        `json:"forecastDays,omitempty"`
	IncludeForecast *bool      `json:"includeForecast,omitempty"`
	IncludeSeasonal bool       `json:"includeSeasonal,omitempty"`
	UserID          string     `json:"-"`
}

// Validate rejects requests that cannot identify a destination.
func (r Request) Validate() error {
	if r.CityName == "" {
		return validationErrorf("cityName is required")
	}
	if r.State == "" {
		return validationErrorf("state is required")
	}
	if r.TravelStartDate != nil && r.TravelEndDate != nil && !r.TravelEndDate.After(*r.TravelStartDate) {
		return validationErrorf("travelEndDate must be after travelStartDate")
	}
	return nil
}

// CacheMeta tells the caller where the bundle came from.
type CacheMeta struct {
	Cached   bool       `json:"cached"`
	CachedAt *time.Time `json:"cachedAt,omitempty"`
	Source   string     `json:"source"`
}

// Response is the assembled answer for one search.
type Response struct {
	City   *city.City     `json:"city"`
	Bundle *bundle.Bundle `json:"bundle"`
	Cache  CacheMeta      `json:"cache"`
}

// CityDirectory is the slice of the city directory the pipeline needs.
type CityDirectory interface {
	Resolve(ctx context.Context, name, state, country string) (*city.City, error)
	RecordRequest(ctx context.Context, cityID string) error
	LearnCoordinates(ctx context.Context, cityID string, coords geo.Coordinates) error
}

// BundleCache is the slice of the cache store the pipeline needs.
type BundleCache interface {
	Get(ctx context.Context, cityID string) (*bundle.Bundle, error)
	Set(ctx context.Context, cityID string, b *bundle.Bundle, ttl time.Duration) error
}

// WikiProvider fetches the encyclopedic section.
type WikiProvider interface {
	Fetch(ctx context.Context, name, state, country string) (*wiki.Summary, error)
}

// WeatherProvider fetches the weather section.
type WeatherProvider interface {
	Fetch(ctx context.Context, req weather.Request) (*weather.Result, error)
}

// CostsProvider estimates the trip cost section.
type CostsProvider interface {
	Estimate(ctx context.Context, req costs.Request) (*bundle.CostBreakdown, []bundle.Hotel, error)
}

// TextGenerator produces the narrative for an assembled bundle.
type TextGenerator interface {
	Generate(ctx context.Context, c *city.City, b *bundle.Bundle) string
}

// HistoryWriter records a search, fire-and-forget.
type HistoryWriter interface {
	Create(ctx context.Context, rec history.Record) (*history.Record, error)
}

// Dependencies collects everything the pipeline talks to. Built once at
// process start and passed down; no globals.
type Dependencies struct {
	Directory CityDirectory
	Cache     BundleCache
	Wiki      WikiProvider
	Weather   WeatherProvider
	Costs     CostsProvider
	Guide     TextGenerator
	History   HistoryWriter
	Log       *slog.Logger
}

// Service runs the search pipeline.
type Service struct {
	deps Dependencies
	ttl  time.Duration
}

// NewService constructs the pipeline. ttl is the cache lifetime for promoted
// bundles; zero means the cache store's default.
func NewService(deps Dependencies, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{deps: deps, ttl: ttl}
}

// Search answers one destination request. Only city resolution and input
// validation can fail it; every provider failure degrades to an absent
// section, and all side effects (counter, cache write, history) run in the
// background.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = withDefaults(req)

	c, err := s.deps.Directory.Resolve(ctx, req.CityName, req.State, req.Country)
	if err != nil {
		return nil, fmt.Errorf("destination not found: %w", err)
	}

	s.background(ctx, "record request", func(bg context.Context) error {
		return s.deps.Directory.RecordRequest(bg, c.ID)
	})

	if cached := s.lookupCache(ctx, c.ID); cached != nil {
		s.recordHistory(ctx, c, req)
		return &Response{
			City:   c,
			Bundle: cached,
			Cache:  CacheMeta{Cached: true, CachedAt: &cached.CreatedAt, Source: "cache"},
		}, nil
	}

	b := s.assemble(ctx, c, req)
	b.GeneratedText = s.deps.Guide.Generate(ctx, c, b)
	b.GeneratedAt = time.Now().UTC()

	if s.promotable(c) {
		s.background(ctx, "cache write", func(bg context.Context) error {
			return s.deps.Cache.Set(bg, c.ID, b, s.ttl)
		})
	}
	s.recordHistory(ctx, c, req)

	return &Response{
		City:   c,
		Bundle: b,
		Cache:  CacheMeta{Cached: false, Source: "fresh"},
	}, nil
}

func withDefaults(req Request) Request {
	if req.Country == "" {
		req.Country = city.DefaultCountry
	}
	if req.Origin == "" {
		req.Origin = defaultOrigin
	}
	if req.ForecastDays <= 0 {
		req.ForecastDays = defaultForecastDays
	}
	if req.TravelStartDate == nil {
		now := time.Now()
		req.TravelStartDate = &now
	}
	if req.TravelEndDate == nil {
		end := req.TravelStartDate.AddDate(0, 0, defaultTripDays)
		req.TravelEndDate = &end
	}
	return req
}

func (r Request) includeForecast() bool {
	return r.IncludeForecast == nil || *r.IncludeForecast
}

// lookupCache treats store errors and logically expired bundles as misses.
func (s *Service) lookupCache(ctx context.Context, cityID string) *bundle.Bundle {
	b, err := s.deps.Cache.Get(ctx, cityID)
	if err != nil {
		s.deps.Log.Warn("cache lookup failed, assembling fresh", "cityID", cityID, "err", err)
		return nil
	}
	return b
}

// assemble fans out to the three providers and merges whatever settled
// successfully. A provider failure leaves its section nil and never aborts
// the siblings.
func (s *Service) assemble(ctx context.Context, c *city.City, req Request) *bundle.Bundle {
	b := bundle.New(c.ID, s.ttl)

	var (
		summary *wiki.Summary
		wres    *weather.Result
		costsBD *bundle.CostBreakdown
		hotels  []bundle.Hotel
	)

	g := &errgroup.Group{}

	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, providerTimeout)
		defer cancel()

		res, err := s.deps.Wiki.Fetch(pctx, c.Name, c.State, c.Country)
		if err != nil {
			s.deps.Log.Warn("provider failed", "provider", "wiki", "city", c.Name, "err", err)
			return nil
		}
		summary = res
		return nil
	})

	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, providerTimeout)
		defer cancel()

		res, err := s.deps.Weather.Fetch(pctx, weather.Request{
			Coordinates:     c.Coordinates,
			CityName:        c.Name,
			ForecastDays:    req.ForecastDays,
			TargetMonth:     int(req.TravelStartDate.Month()),
			IncludeForecast: req.includeForecast(),
			IncludeSeasonal: req.IncludeSeasonal,
		})
		if err != nil {
			s.deps.Log.Warn("provider failed", "provider", "weather", "city", c.Name, "err", err)
			return nil
		}
		wres = res
		return nil
	})

	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, providerTimeout)
		defer cancel()

		bd, h, err := s.deps.Costs.Estimate(pctx, costs.Request{
			Origin:      req.Origin,
			Destination: c.Name,
			CheckIn:     *req.TravelStartDate,
			CheckOut:    *req.TravelEndDate,
			DestCoords:  c.Coordinates,
		})
		if err != nil {
			s.deps.Log.Warn("provider failed", "provider", "costs", "city", c.Name, "err", err)
			return nil
		}
		costsBD, hotels = bd, h
		return nil
	})

	// Workers settle failures themselves, so Wait never returns an error.
	_ = g.Wait()

	if summary != nil {
		b.CityInfo = &bundle.CityInfo{
			Title:        summary.Title,
			Description:  summary.Description,
			Extract:      summary.Extract,
			URL:          summary.CanonicalURL,
			ThumbnailURL: summary.ThumbnailURL,
			Categories:   summary.Categories,
		}
		s.learnCoordinates(ctx, c, summary)
	}
	if wres != nil && (wres.Current != nil || len(wres.Forecast) > 0 || wres.Seasonal != nil) {
		b.Weather = &bundle.WeatherInfo{
			Current:  wres.Current,
			Forecast: wres.Forecast,
			Seasonal: wres.Seasonal,
		}
	}
	b.Costs = costsBD
	b.Hotels = hotels

	return b
}

// learnCoordinates backfills the city record with coordinates discovered on
// the encyclopedic page, for cities created without any.
func (s *Service) learnCoordinates(ctx context.Context, c *city.City, summary *wiki.Summary) {
	if c.Coordinates != nil || summary.Coordinates == nil {
		return
	}
	coords := *summary.Coordinates
	s.background(ctx, "learn coordinates", func(bg context.Context) error {
		return s.deps.Directory.LearnCoordinates(bg, c.ID, coords)
	})
}

// promotable gates the cache write: only cities whose counter has already
// crossed the popularity threshold earn a cached bundle. Everything else is
// assembled fresh each time, bounding the cache to busy destinations.
func (s *Service) promotable(c *city.City) bool {
	return c.IsPopular || c.RequestCount >= city.PopularityThreshold
}

func (s *Service) recordHistory(ctx context.Context, c *city.City, req Request) {
	if s.deps.History == nil || req.UserID == "" {
		return
	}
	rec := history.Record{
		UserID:          req.UserID,
		CityID:          c.ID,
		CityName:        c.Name,
		State:           c.State,
		Country:         c.Country,
		TravelStartDate: *req.TravelStartDate,
		TravelEndDate:   *req.TravelEndDate,
	}
	s.background(ctx, "record history", func(bg context.Context) error {
		_, err := s.deps.History.Create(bg, rec)
		return err
	})
}

// background runs a side effect detached from the request lifecycle. The
// request's cancellation must not abort it, so the context is stripped of its
// cancel signal but keeps its values.
func (s *Service) background(ctx context.Context, name string, fn func(context.Context) error) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := fn(bg); err != nil {
			s.deps.Log.Error("background task failed", "task", name, "err", err)
		}
	}()
}
