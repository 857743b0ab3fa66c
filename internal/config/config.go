// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const maxPortNumber = 65535

// Config is the whole service configuration, loaded once at startup.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Weather       WeatherConfig
	Transport     TransportConfig
	Accommodation AccommodationConfig
	Guide         GuideConfig
}

type ServerConfig struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	BearerToken string `envconfig:"BEARER_TOKEN" required:"true"`
}

type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" required:"true"`
}

type RedisConfig struct {
	URL      string `envconfig:"REDIS_URL" required:"true"`
	TTLHours int    `envconfig:"CACHE_TTL_HOURS" default:"72"`
}

type WeatherConfig struct {
	APIKey  string `envconfig:"OPENWEATHER_API_KEY" required:"true"`
	BaseURL string `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`
}

// TransportConfig is optional: without a key the fare lookup is skipped and
// the distance heuristic is used directly.
type TransportConfig struct {
	APIKey string `envconfig:"FARE_API_KEY"`
}

// AccommodationConfig is optional: without credentials the static nightly
// table is used directly.
type AccommodationConfig struct {
	ClientID     string `envconfig:"HOTEL_API_CLIENT_ID"`
	ClientSecret string `envconfig:"HOTEL_API_CLIENT_SECRET"`
}

// GuideConfig is optional: without a key the deterministic narrative
// template is used.
type GuideConfig struct {
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	Model        string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
}

// Load reads and validates the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > maxPortNumber {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Redis.TTLHours <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %d hours", c.Redis.TTLHours)
	}
	return nil
}
