package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LocationMode selects how every upstream call addresses the grid region.
type LocationMode string

const (
	ModeZone   LocationMode = "zone"
	ModeCoords LocationMode = "coords"
)

// AppConfig is the process-wide configuration, fixed at startup.
type AppConfig struct {
	Port string

	// Electricity Maps access.
	BaseURL string
	Token   string

	// Location addressing, exactly one mode per process run.
	Mode LocationMode
	Zone string
	Lat  float64
	Lon  float64

	// Optional geocoding input for coords mode without explicit lat/lon.
	City           string
	Country        string
	GeocoderAPIKey string

	CacheTTL    time.Duration
	HTTPTimeout time.Duration

	// SingleFlight shares one upstream call between concurrent cache
	// misses for the same key. Off by default.
	SingleFlight bool

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.BaseURL = getenvDefault("EM_BASE_URL", "https://api.electricitymap.org")
	cfg.Token = os.Getenv("EM_TOKEN")
	if cfg.Token == "" {
		return nil, fmt.Errorf("EM_TOKEN is required")
	}

	mode := LocationMode(getenvDefault("EM_LOCATION_MODE", string(ModeZone)))
	switch mode {
	case ModeZone, ModeCoords:
		cfg.Mode = mode
	default:
		return nil, fmt.Errorf("invalid EM_LOCATION_MODE %q: must be %q or %q", mode, ModeZone, ModeCoords)
	}

	cfg.Zone = getenvDefault("EM_ZONE", "AT")

	var err error
	if cfg.Lat, err = getenvFloat("EM_LAT", 0); err != nil {
		return nil, err
	}
	if cfg.Lon, err = getenvFloat("EM_LON", 0); err != nil {
		return nil, err
	}

	cfg.City = os.Getenv("EM_CITY")
	cfg.Country = os.Getenv("EM_COUNTRY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.SingleFlight = getenvDefault("SINGLE_FLIGHT", "false") == "true"

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFile = os.Getenv("LOG_FILE")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
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
