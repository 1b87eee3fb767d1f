package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultMapQuestURL   = "https://www.mapquestapi.com/geocoding/v1/address"
	defaultDesignMapsURL = "https://earthquake.usgs.gov/ws/designmaps/asce7-16.json"
	credentialsFileName  = "credentials.env"
	appDirName           = "seisreport"
)

// Config holds all tool settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// MapQuest geocoding configuration. An empty key falls through to the
	// credential file.
	MapQuestAPIKey  string
	MapQuestBaseURL string

	DesignMapsBaseURL string
	HTTPTimeout       time.Duration

	CredentialsFile string
	OutputDir       string

	// MetricsFile, when set, receives a Prometheus textfile export at exit.
	MetricsFile string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	timeoutStr := sharedcfg.EnvOrDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}

	credentialsFile := os.Getenv("CREDENTIALS_FILE")
	if credentialsFile == "" {
		credentialsFile = defaultCredentialsFile()
	}

	cfg := &Config{
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		MapQuestAPIKey:    os.Getenv("MAPQUEST_API_KEY"),
		MapQuestBaseURL:   sharedcfg.EnvOrDefault("MAPQUEST_BASE_URL", defaultMapQuestURL),
		DesignMapsBaseURL: sharedcfg.EnvOrDefault("DESIGNMAPS_BASE_URL", defaultDesignMapsURL),
		HTTPTimeout:       timeout,
		CredentialsFile:   credentialsFile,
		OutputDir:         sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		MetricsFile:       os.Getenv("METRICS_FILE"),
	}

	if !isHTTPURL(cfg.MapQuestBaseURL) {
		return nil, errors.New("MAPQUEST_BASE_URL must be an http(s) URL")
	}
	if !isHTTPURL(cfg.DesignMapsBaseURL) {
		return nil, errors.New("DESIGNMAPS_BASE_URL must be an http(s) URL")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, errors.New("LOG_FORMAT must be json or text")
	}

	return cfg, nil
}

// defaultCredentialsFile places the key under the user config directory,
// falling back to the working directory when none is available.
func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "." + appDirName + "-" + credentialsFileName
	}
	return filepath.Join(dir, appDirName, credentialsFileName)
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
