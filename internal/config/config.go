package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Opulux135/driven-backend/internal/poi"
)

type AppConfig struct {
	// DataAPIBaseURL is the base URL of the upstream POI data gateway.
	DataAPIBaseURL string

	// GeocoderAPIKey enables centroid geocoding for countries missing from
	// the static registry. Optional.
	GeocoderAPIKey string

	// HTTPTimeout bounds the outbound HTTP client.
	HTTPTimeout time.Duration

	// ProviderTimeout bounds each provider call within a cycle; expiry
	// counts as a transport failure for that category.
	ProviderTimeout time.Duration

	// DeviceWait bounds the device-geolocation wait before falling back to
	// the country centroid.
	DeviceWait time.Duration

	// FetchInterval controls how often the scheduler refreshes snapshots.
	FetchInterval time.Duration

	// Countries the scheduler keeps warm, by name.
	Countries []string

	// In-memory store retention.
	StoreMaxHistory int           // max snapshots per country (0 = unlimited)
	StoreMaxAge     time.Duration // max snapshot age (0 = unlimited)

	// Thresholds for status classification; defaults preserve the original
	// product constants.
	Thresholds poi.Thresholds

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.DataAPIBaseURL = getenvDefault("DATA_API_BASE_URL", "http://localhost:5001/api")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = getenvDuration("PROVIDER_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.DeviceWait, err = getenvDuration("DEVICE_WAIT", "3s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.Countries = loadCountries()
	cfg.Thresholds = loadThresholds()
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func loadCountries() []string {
	raw := getenvDefault("COUNTRIES", "Germany")
	var countries []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			countries = append(countries, c)
		}
	}
	return countries
}

// loadThresholds starts from the original product constants and applies env
// overrides. Changing these changes user-visible behavior.
func loadThresholds() poi.Thresholds {
	t := poi.DefaultThresholds()
	t.ParkingAvailableRatio = getenvFloat("PARKING_AVAILABLE_RATIO", t.ParkingAvailableRatio)
	t.ParkingLimitedRatio = getenvFloat("PARKING_LIMITED_RATIO", t.ParkingLimitedRatio)
	t.GasolineLow = getenvFloat("GASOLINE_LOW", t.GasolineLow)
	t.GasolineHigh = getenvFloat("GASOLINE_HIGH", t.GasolineHigh)
	t.DieselLow = getenvFloat("DIESEL_LOW", t.DieselLow)
	t.DieselHigh = getenvFloat("DIESEL_HIGH", t.DieselHigh)
	return t
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
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

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
