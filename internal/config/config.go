// Package config loads the evcharger YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rubiojr/evcharger/internal/booking"
	"github.com/rubiojr/evcharger/internal/evdb"
	"github.com/rubiojr/evcharger/internal/locate"
	"github.com/rubiojr/evcharger/internal/server"
	"github.com/rubiojr/evcharger/pkg/api"
)

// defaultPollInterval matches the reservation list refresh of the web client.
const defaultPollInterval = 30 * time.Second

const (
	DefaultPath = "evcharger.yaml"

	EnvAPIURL = "EVCHARGER_API_URL"
	EnvToken  = "EVCHARGER_TOKEN"
	EnvDB     = "EVCHARGER_DB"
)

// Config represents the overall application configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Booking  BookingConfig  `yaml:"booking"`
	Location LocationConfig `yaml:"location"`
	Server   ServerConfig   `yaml:"server"`
	Poll     PollConfig     `yaml:"poll"`
}

// APIConfig holds the reservation API settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	Token          string        `yaml:"token"`
}

type StorageConfig struct {
	DB string `yaml:"db"`
}

// BookingConfig holds the pricing and cancellation rules.
type BookingConfig struct {
	SessionKwh          float64       `yaml:"session_kwh"`
	CancelWindowMinutes int           `yaml:"cancel_window_minutes"`
	CancelWindow        time.Duration `yaml:"-"`
}

// LocationConfig holds the fallback position and the geocoder server.
type LocationConfig struct {
	FallbackLat float64 `yaml:"fallback_lat"`
	FallbackLng float64 `yaml:"fallback_lng"`
	GeocoderURL string  `yaml:"geocoder_url"`
}

// ServerConfig holds the local HTTP view settings.
type ServerConfig struct {
	Port               int `yaml:"port"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

type PollConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from the given path. A missing file is not an
// error and yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("error opening config: %w", err)
	default:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.API.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDB)); v != "" {
		cfg.Storage.DB = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = api.DefaultBaseURL
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = int(api.DefaultTimeout / time.Second)
	}
	cfg.API.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second

	if cfg.Storage.DB == "" {
		cfg.Storage.DB = evdb.DefaultPath
	}

	if cfg.Booking.SessionKwh <= 0 {
		cfg.Booking.SessionKwh = booking.DefaultSessionKwh
	}
	if cfg.Booking.CancelWindowMinutes <= 0 {
		cfg.Booking.CancelWindowMinutes = int(booking.DefaultCancelWindow / time.Minute)
	}
	cfg.Booking.CancelWindow = time.Duration(cfg.Booking.CancelWindowMinutes) * time.Minute

	if cfg.Location.FallbackLat == 0 && cfg.Location.FallbackLng == 0 {
		cfg.Location.FallbackLat = locate.Fallback.Lat
		cfg.Location.FallbackLng = locate.Fallback.Lng
	}
	if cfg.Location.GeocoderURL == "" {
		cfg.Location.GeocoderURL = locate.DefaultGeocoderURL
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = server.DefaultPort
	}
	if cfg.Server.RateLimitPerMinute <= 0 {
		cfg.Server.RateLimitPerMinute = server.DefaultRateLimitPerMinute
	}

	if cfg.Poll.IntervalSeconds <= 0 {
		cfg.Poll.IntervalSeconds = int(defaultPollInterval / time.Second)
	}
	cfg.Poll.Interval = time.Duration(cfg.Poll.IntervalSeconds) * time.Second
}
