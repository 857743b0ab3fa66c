package bundle

import "time"

// Season is one of the four meteorological seasons.
type Season string

const (
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
)

// Source tags where a cost sub-estimate came from: a live external API or a
// static heuristic table.
type Source string

const (
	SourceAPI       Source = "api"
	SourceEstimated Source = "estimated"
)

// WeatherCurrent holds current conditions for a city.
type WeatherCurrent struct {
	Temperature    float64   `json:"temperature"`
	TemperatureMin *float64  `json:"temperature_min,omitempty"`
	TemperatureMax *float64  `json:"temperature_max,omitempty"`
	FeelsLike      *float64  `json:"feels_like,omitempty"`
	Condition      string    `json:"condition"`
	Description    string    `json:"description"`
	Humidity       int       `json:"humidity"`
	WindSpeed      float64   `json:"wind_speed"`
	Pressure       int       `json:"pressure"`
	Cloudiness     *int      `json:"cloudiness,omitempty"`
	Visibility     *int      `json:"visibility,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ForecastDay is one day of forecast, aggregated from a finer-grained feed.
type ForecastDay struct {
	Date           time.Time `json:"date"`
	Temperature    float64   `json:"temperature"`
	TemperatureMin float64   `json:"temperature_min"`
	TemperatureMax float64   `json:"temperature_max"`
	Condition      string    `json:"condition"`
	Description    string    `json:"description"`
	Humidity       int       `json:"humidity"`
	ChanceOfRain   float64   `json:"chance_of_rain"`
}

// SeasonalWeather is the typical climate for the travel month.
type SeasonalWeather struct {
	Season             Season  `json:"season"`
	AverageTemperature float64 `json:"average_temperature"`
	AverageRainfall    float64 `json:"average_rainfall"`
	Description        string  `json:"description"`
}

// WeatherInfo groups the three weather sections. Any of them may be absent.
type WeatherInfo struct {
	Current  *WeatherCurrent  `json:"current,omitempty"`
	Forecast []ForecastDay    `json:"forecast,omitempty"`
	Seasonal *SeasonalWeather `json:"seasonal,omitempty"`
}

// PriceRange is a {min,max} money range in the deployment currency.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TransportCosts holds per-mode transport price ranges.
type TransportCosts struct {
	Bus    *PriceRange `json:"bus,omitempty"`
	Flight *PriceRange `json:"flight,omitempty"`
}

// AccommodationCosts holds nightly price ranges per tier.
type AccommodationCosts struct {
	Budget   *PriceRange `json:"budget,omitempty"`
	MidRange *PriceRange `json:"mid_range,omitempty"`
	Luxury   *PriceRange `json:"luxury,omitempty"`
}

// DailyBudget is the blended per-day estimate per tier (lodging + food).
type DailyBudget struct {
	Budget   float64 `json:"budget"`
	MidRange float64 `json:"mid_range"`
	Luxury   float64 `json:"luxury"`
}

// CostSources records provenance per cost sub-category.
type CostSources struct {
	Transport     Source `json:"transport"`
	Accommodation Source `json:"accommodation"`
}

// CostBreakdown is the full cost estimate for a trip.
type CostBreakdown struct {
	Transport     *TransportCosts     `json:"transport,omitempty"`
	Accommodation *AccommodationCosts `json:"accommodation,omitempty"`
	DailyBudget   *DailyBudget        `json:"daily_budget,omitempty"`
	TotalEstimate *PriceRange         `json:"total_estimate,omitempty"`
	Currency      string              `json:"currency"`
	Nights        int                 `json:"nights"`
	Sources       CostSources         `json:"sources"`
}

// CityInfo is the encyclopedic section of a bundle.
type CityInfo struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Extract      string   `json:"extract"`
	URL          string   `json:"url,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Categories   []string `json:"categories,omitempty"`
}

// Hotel is one lodging candidate returned by the offer search.
type Hotel struct {
	HotelID       string   `json:"hotel_id,omitempty"`
	Name          string   `json:"name"`
	PricePerNight *float64 `json:"price_per_night,omitempty"`
}

// Bundle is the assembled destination information for a city, cacheable as a
// unit. Optional sections stay nil when the corresponding provider returned
// nothing.
type Bundle struct {
	CityID        string         `json:"city_id"`
	CityInfo      *CityInfo      `json:"city_info,omitempty"`
	Weather       *WeatherInfo   `json:"weather,omitempty"`
	Costs         *CostBreakdown `json:"costs,omitempty"`
	Hotels        []Hotel        `json:"hotels,omitempty"`
	GeneratedText string         `json:"generated_text"`
	GeneratedAt   time.Time      `json:"generated_at"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
	HitCount      int64          `json:"hit_count"`
}

// New builds a fresh bundle expiring ttl from now.
func New(cityID string, ttl time.Duration) *Bundle {
	now := time.Now().UTC()
	return &Bundle{
		CityID:      cityID,
		GeneratedAt: now,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// IsExpired reports whether the bundle's own expiry timestamp has passed,
// independent of the cache store's physical TTL.
func (b *Bundle) IsExpired() bool {
	return !time.Now().Before(b.ExpiresAt)
}
