package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "WEATHER_CLIENT_CONFIG"

type AppConfig struct {
	Provider ProviderConfig `yaml:"provider"`
	Forecast ForecastConfig `yaml:"forecast"`
	Location LocationConfig `yaml:"location"`
	Network  NetworkConfig  `yaml:"network"`
	Cache    CacheConfig    `yaml:"cache"`

	// RefreshInterval drives the in-session periodic refresh (0 disables).
	RefreshInterval time.Duration `yaml:"refreshInterval" validate:"gte=0"`

	Port     string `yaml:"port" validate:"required,numeric"`
	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn warning error"`
}

// ProviderConfig selects the forecast backend and its credentials.
type ProviderConfig struct {
	Name              string        `yaml:"name" validate:"oneof=openweather openmeteo weatherapi"`
	OpenWeatherAPIKey string        `yaml:"openWeatherApiKey"`
	WeatherAPIKey     string        `yaml:"weatherApiKey"`
	GeocoderAPIKey    string        `yaml:"geocoderApiKey"`
	HTTPTimeout       time.Duration `yaml:"httpTimeout" validate:"gt=0"`
}

// ForecastConfig shapes every forecast request and the freshness policy.
type ForecastConfig struct {
	Threshold time.Duration `yaml:"threshold" validate:"gt=0"`
	Days      int           `yaml:"days" validate:"min=1,max=16"`
	Units     string        `yaml:"units" validate:"oneof=metric imperial standard"`
	Lang      string        `yaml:"lang" validate:"required"`
}

// LocationConfig tunes the location detector and its sources.
type LocationConfig struct {
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	InitialGrace  time.Duration `yaml:"initialGrace" validate:"gt=0"`
	PollInterval  time.Duration `yaml:"pollInterval" validate:"gt=0"`
	RetryInterval time.Duration `yaml:"retryInterval" validate:"gt=0"`
	// FixFile, when set, is watched for fixes instead of the HTTP feed.
	FixFile string `yaml:"fixFile"`
	// DBPath of the last-location store; empty keeps it in memory.
	DBPath string `yaml:"dbPath"`
}

// NetworkConfig configures the connectivity prober.
type NetworkConfig struct {
	ProbeAddr     string        `yaml:"probeAddr" validate:"required,hostname_port"`
	ProbeInterval time.Duration `yaml:"probeInterval" validate:"gt=0"`
}

// CacheConfig selects the forecast cache backend.
type CacheConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite memory"`
	Path   string `yaml:"path" validate:"required_if=Driver sqlite"`
}

var validate = validator.New()

func defaultConfig() *AppConfig {
	return &AppConfig{
		Provider: ProviderConfig{
			Name:        "openweather",
			HTTPTimeout: 10 * time.Second,
		},
		Forecast: ForecastConfig{
			Threshold: 15 * time.Minute,
			Days:      7,
			Units:     "metric",
			Lang:      "en",
		},
		Location: LocationConfig{
			Timeout:       15 * time.Second,
			InitialGrace:  3 * time.Second,
			PollInterval:  time.Second,
			RetryInterval: 500 * time.Millisecond,
			DBPath:        "weather-location",
		},
		Network: NetworkConfig{
			ProbeAddr:     "api.openweathermap.org:443",
			ProbeInterval: 5 * time.Second,
		},
		Cache: CacheConfig{
			Driver: "sqlite",
			Path:   "weather-cache.db",
		},
		RefreshInterval: 15 * time.Minute,
		Port:            "8080",
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// WEATHER_CLIENT_CONFIG and environment overrides, then validates it.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (cfg *AppConfig) applyEnvOverrides() error {
	cfg.Provider.Name = getenvDefault("WEATHER_PROVIDER", cfg.Provider.Name)
	cfg.Provider.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.Provider.OpenWeatherAPIKey)
	cfg.Provider.WeatherAPIKey = getenvDefault("WEATHERAPI_API_KEY", cfg.Provider.WeatherAPIKey)
	cfg.Provider.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", cfg.Provider.GeocoderAPIKey)

	cfg.Forecast.Days = getenvInt("FORECAST_DAYS", cfg.Forecast.Days)
	cfg.Forecast.Units = getenvDefault("FORECAST_UNITS", cfg.Forecast.Units)
	cfg.Forecast.Lang = getenvDefault("FORECAST_LANG", cfg.Forecast.Lang)

	cfg.Location.FixFile = getenvDefault("LOCATION_FIX_FILE", cfg.Location.FixFile)
	if v, ok := os.LookupEnv("LOCATION_DB_PATH"); ok {
		cfg.Location.DBPath = v
	}
	cfg.Network.ProbeAddr = getenvDefault("CONNECTIVITY_PROBE_ADDR", cfg.Network.ProbeAddr)

	cfg.Cache.Driver = getenvDefault("CACHE_DRIVER", cfg.Cache.Driver)
	cfg.Cache.Path = getenvDefault("CACHE_PATH", cfg.Cache.Path)

	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.Provider.HTTPTimeout},
		{"FRESHNESS_THRESHOLD", &cfg.Forecast.Threshold},
		{"LOCATION_TIMEOUT", &cfg.Location.Timeout},
		{"LOCATION_GRACE", &cfg.Location.InitialGrace},
		{"LOCATION_POLL", &cfg.Location.PollInterval},
		{"LOCATION_RETRY", &cfg.Location.RetryInterval},
		{"CONNECTIVITY_PROBE_INTERVAL", &cfg.Network.ProbeInterval},
		{"REFRESH_INTERVAL", &cfg.RefreshInterval},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.key, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	return nil
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

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
