package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/owm-poller/pkg/owm"
)

var validate = validator.New()

type AppConfig struct {
	APIKey   string `validate:"required"`
	Location string `validate:"required"`
	Units    string `validate:"oneof=standard metric imperial"`
	Lang     string `validate:"required"`

	Endpoint     owm.Endpoint
	ForecastDays int `validate:"gte=0,lte=16"`

	// PollInterval is the delay between successful upstream requests.
	PollInterval time.Duration
	// MinInterval is the smallest gap between any two upstream requests.
	MinInterval time.Duration `validate:"gte=1s"`
	// ReadInterval controls how often the consumer drains the update channel.
	ReadInterval time.Duration `validate:"gte=1s"`

	HTTPTimeout    time.Duration `validate:"gt=0"`
	BufferSize     int           `validate:"gte=1"`
	CircuitBreaker bool

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.Location = os.Getenv("WEATHER_LOCATION")
	cfg.Units = getenvDefault("WEATHER_UNITS", "metric")
	cfg.Lang = getenvDefault("WEATHER_LANG", "en")

	endpoint, err := owm.ParseEndpoint(os.Getenv("WEATHER_ENDPOINT"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_ENDPOINT: %w", err)
	}
	cfg.Endpoint = endpoint
	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 0)

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"POLL_INTERVAL", "10m", &cfg.PollInterval},
		{"MIN_INTERVAL", "10s", &cfg.MinInterval},
		{"READ_INTERVAL", "5s", &cfg.ReadInterval},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	cfg.BufferSize = getenvInt("BUFFER_SIZE", owm.DefaultBuffer)
	cfg.CircuitBreaker = getenvBool("CIRCUIT_BREAKER", true)
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Query returns the upstream request parameters.
func (c *AppConfig) Query() owm.Query {
	return owm.Query{
		Location: c.Location,
		Units:    c.Units,
		Lang:     c.Lang,
		APIKey:   c.APIKey,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
