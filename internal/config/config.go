package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr    = ":8080"
	defaultMetricsAddr = "off"

	defaultConnectTimeout = 60 * time.Second
	defaultVerifyTimeout  = 30 * time.Second
)

// Config holds process-wide settings shared by the CLI and the API server.
type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	MetricsAddr    string
	MigrationsPath string
	ConnectTimeout time.Duration
	VerifyTimeout  time.Duration
	PlainHTTP      bool
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

// Load reads configuration for commands that require the connector store.
func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

// LoadOptionalDB reads configuration for commands that work without a store.
func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		HTTPAddr:       getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:    getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		MigrationsPath: getenvDefault("MIGRATIONS_PATH", "db/migrations"),
		ConnectTimeout: defaultConnectTimeout,
		VerifyTimeout:  defaultVerifyTimeout,
		PlainHTTP:      getenvBoolDefault("REGISTRY_PLAIN_HTTP", false),
	}

	if v := os.Getenv("CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ConnectTimeout = d
		}
	}
	if v := os.Getenv("VERIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.VerifyTimeout = d
		}
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
