package weather

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/geo"
	"github.com/mvbarbosa/destino-api/internal/httpx"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"

	minForecastDays = 1
	maxForecastDays = 16
	// The raw feed carries 8 entries per day (one every 3 hours).
	entriesPerDay = 8
)

// Request selects which weather sections to fetch. Coordinates are resolved
// from the explicit value, then the static city table.
type Request struct {
	Coordinates     *geo.Coordinates
	CityName        string
	ForecastDays    int
	TargetMonth     int
	IncludeForecast bool
	IncludeSeasonal bool
}

// Result holds the fetched sections. Any subset may be nil when its sub-fetch
// failed; the others are still populated.
type Result struct {
	Current     *bundle.WeatherCurrent
	Forecast    []bundle.ForecastDay
	Seasonal    *bundle.SeasonalWeather
	Coordinates geo.Coordinates
}

// Service fetches current, forecast, and seasonal weather for a destination.
type Service struct {
	apiKey  string
	baseURL string
	client  *httpx.Client
	log     *slog.Logger
}

// NewService constructs a Service against the production API.
func NewService(apiKey string, log *slog.Logger) *Service {
	return NewServiceWithURL(defaultBaseURL, apiKey, log)
}

// NewServiceWithURL constructs a Service pointing at a custom base URL (for tests).
func NewServiceWithURL(baseURL, apiKey string, log *slog.Logger) *Service {
	return &Service{apiKey: apiKey, baseURL: baseURL, client: httpx.New(), log: log}
}

// Fetch resolves coordinates and runs the requested sub-fetches concurrently.
// Individual sub-fetch failures are logged and leave their section nil; only
// an unresolvable location or invalid input fails the whole call.
func (s *Service) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	coords, err := s.resolveCoordinates(req)
	if err != nil {
		return nil, err
	}

	res := &Result{Coordinates: coords}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		current, err := s.fetchCurrent(gCtx, coords)
		if err != nil {
			s.log.Warn("current weather fetch failed", "city", req.CityName, "err", err)
			return nil
		}
		res.Current = current
		return nil
	})

	if req.IncludeForecast {
		days := req.ForecastDays
		if days == 0 {
			days = 5
		}
		g.Go(func() error {
			forecast, err := s.fetchForecast(gCtx, coords, days)
			if err != nil {
				s.log.Warn("forecast fetch failed", "city", req.CityName, "err", err)
				return nil
			}
			res.Forecast = forecast
			return nil
		})
	}

	if req.IncludeSeasonal {
		month := req.TargetMonth
		if month == 0 {
			month = int(time.Now().Month())
		}
		seasonal := SeasonalFor(month, coords)
		res.Seasonal = &seasonal
	}

	_ = g.Wait()
	return res, nil
}

func validate(req Request) error {
	if req.Coordinates == nil && req.CityName == "" {
		return fmt.Errorf("weather: city name or coordinates required")
	}
	if req.Coordinates != nil {
		if err := req.Coordinates.Validate(); err != nil {
			return fmt.Errorf("weather: %w", err)
		}
	}
	if req.ForecastDays != 0 && (req.ForecastDays < minForecastDays || req.ForecastDays > maxForecastDays) {
		return fmt.Errorf("weather: forecast days must be between %d and %d", minForecastDays, maxForecastDays)
	}
	if req.TargetMonth != 0 && (req.TargetMonth < 1 || req.TargetMonth > 12) {
		return fmt.Errorf("weather: target month must be between 1 and 12")
	}
	return nil
}

func (s *Service) resolveCoordinates(req Request) (geo.Coordinates, error) {
	if req.Coordinates != nil {
		return *req.Coordinates, nil
	}
	if coords, ok := CityCoordinates(req.CityName); ok {
		return coords, nil
	}
	return geo.Coordinates{}, fmt.Errorf("weather: no coordinates known for city %q", req.CityName)
}

func (s *Service) params(coords geo.Coordinates, extra url.Values) url.Values {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", coords.Latitude))
	q.Set("lon", fmt.Sprintf("%f", coords.Longitude))
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "pt_br")
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return q
}

type currentResponse struct {
	Main struct {
		Temp      float64  `json:"temp"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  int      `json:"humidity"`
		Pressure  int      `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds *struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility *int  `json:"visibility"`
	Dt         int64 `json:"dt"`
}

func (s *Service) fetchCurrent(ctx context.Context, coords geo.Coordinates) (*bundle.WeatherCurrent, error) {
	endpoint := s.baseURL + "/weather?" + s.params(coords, nil).Encode()

	var raw currentResponse
	if err := s.client.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching current weather: %w", err)
	}

	current := &bundle.WeatherCurrent{
		Temperature:    raw.Main.Temp,
		TemperatureMin: raw.Main.TempMin,
		TemperatureMax: raw.Main.TempMax,
		FeelsLike:      raw.Main.FeelsLike,
		Humidity:       raw.Main.Humidity,
		Pressure:       raw.Main.Pressure,
		WindSpeed:      raw.Wind.Speed,
		Visibility:     raw.Visibility,
		Timestamp:      time.Unix(raw.Dt, 0).UTC(),
	}
	if len(raw.Weather) > 0 {
		current.Condition = raw.Weather[0].Main
		current.Description = raw.Weather[0].Description
	}
	if raw.Clouds != nil {
		current.Cloudiness = &raw.Clouds.All
	}
	return current, nil
}

type forecastResponse struct {
	List []forecastEntry `json:"list"`
}

type forecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Pop float64 `json:"pop"`
}

func (s *Service) fetchForecast(ctx context.Context, coords geo.Coordinates, days int) ([]bundle.ForecastDay, error) {
	extra := url.Values{}
	extra.Set("cnt", fmt.Sprintf("%d", days*entriesPerDay))
	endpoint := s.baseURL + "/forecast?" + s.params(coords, extra).Encode()

	var raw forecastResponse
	if err := s.client.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}
	if len(raw.List) == 0 {
		return nil, fmt.Errorf("forecast response contains no entries")
	}

	daily := groupByDay(raw.List)
	if len(daily) > days {
		daily = daily[:days]
	}
	return daily, nil
}

// groupByDay folds the 3-hourly feed into daily aggregates: mean temperature,
// min of mins, max of maxes, the dominant condition by mode, mean humidity,
// and the maximum precipitation probability.
func groupByDay(list []forecastEntry) []bundle.ForecastDay {
	byDay := make(map[string][]forecastEntry)
	var order []string

	for _, e := range list {
		day := time.Unix(e.Dt, 0).UTC().Format("2006-01-02")
		if _, ok := byDay[day]; !ok {
			order = append(order, day)
		}
		byDay[day] = append(byDay[day], e)
	}
	sort.Strings(order)

	out := make([]bundle.ForecastDay, 0, len(order))
	for _, day := range order {
		entries := byDay[day]

		var tempSum, humiditySum, maxPop float64
		minTemp := entries[0].Main.TempMin
		maxTemp := entries[0].Main.TempMax
		conditionCount := make(map[string]int)

		for _, e := range entries {
			tempSum += e.Main.Temp
			humiditySum += e.Main.Humidity
			if e.Main.TempMin < minTemp {
				minTemp = e.Main.TempMin
			}
			if e.Main.TempMax > maxTemp {
				maxTemp = e.Main.TempMax
			}
			if e.Pop > maxPop {
				maxPop = e.Pop
			}
			if len(e.Weather) > 0 {
				conditionCount[e.Weather[0].Main]++
			}
		}

		condition := dominant(conditionCount)
		description := ""
		for _, e := range entries {
			if len(e.Weather) > 0 && e.Weather[0].Main == condition {
				description = e.Weather[0].Description
				break
			}
		}

		date, _ := time.Parse("2006-01-02", day)
		out = append(out, bundle.ForecastDay{
			Date:           date,
			Temperature:    tempSum / float64(len(entries)),
			TemperatureMin: minTemp,
			TemperatureMax: maxTemp,
			Condition:      condition,
			Description:    description,
			Humidity:       int(humiditySum / float64(len(entries))),
			ChanceOfRain:   maxPop,
		})
	}
	return out
}

func dominant(counts map[string]int) string {
	best := ""
	bestCount := 0
	for condition, n := range counts {
		if n > bestCount || (n == bestCount && condition < best) {
			best = condition
			bestCount = n
		}
	}
	return best
}
