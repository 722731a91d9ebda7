package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL          = "http://localhost:3000"
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultBridgeAddr      = "localhost:8090"
	DefaultServerPort      = "3000"
	DefaultTokenTTL        = 24 * time.Hour
	DefaultLoginRatePerMin = 20
)

var ErrMissingAuthKey = errors.New("AUTH_KEY (JWT secret) is missing")

// ClientConfig drives the API client, the session flow and the websocket bridge.
type ClientConfig struct {
	APIURL      string
	HTTPTimeout time.Duration
	BridgeAddr  string
	LogLevel    string
	Env         string
}

// ServerConfig drives the development auth backend.
type ServerConfig struct {
	Port            string
	DatabaseURL     string
	AuthKey         string
	TokenTTL        time.Duration
	LoginRatePerMin int
	LogLevel        string
	Env             string
}

func loadDotenv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on system environment variables", "component", "config")
		return
	}
	slog.Debug("loaded .env file", "component", "config")
}

func LoadClient() (*ClientConfig, error) {
	loadDotenv()

	cfg := &ClientConfig{
		APIURL:     strings.TrimRight(getEnv("AUTHFLOW_API_URL", DefaultAPIURL), "/"),
		BridgeAddr: getEnv("AUTHFLOW_BRIDGE_ADDR", DefaultBridgeAddr),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Env:        getEnv("APP_ENV", "development"),
	}

	timeout, err := getEnvAsDuration("AUTHFLOW_HTTP_TIMEOUT", DefaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	if err := ValidateBaseURL(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("AUTHFLOW_API_URL: %w", err)
	}
	return cfg, nil
}

func LoadServer() (*ServerConfig, error) {
	loadDotenv()

	cfg := &ServerConfig{
		Port:        getEnv("PORT", DefaultServerPort),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AuthKey:     getEnv("AUTH_KEY", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Env:         getEnv("APP_ENV", "development"),
	}

	ttl, err := getEnvAsDuration("TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return nil, err
	}
	cfg.TokenTTL = ttl

	rate, err := getEnvAsInt("LOGIN_RATE_PER_MIN", DefaultLoginRatePerMin)
	if err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, fmt.Errorf("LOGIN_RATE_PER_MIN must be positive, got %d", rate)
	}
	cfg.LoginRatePerMin = rate

	if cfg.AuthKey == "" {
		return nil, ErrMissingAuthKey
	}
	if cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set, using in-memory user store", "component", "config")
	} else {
		slog.Info("database configured", "component", "config", "dsn", MaskDBSource(cfg.DatabaseURL))
	}
	return cfg, nil
}

// ValidateBaseURL rejects anything that is not an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		slog.Debug("variable not set, using default", "component", "config", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return val, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid value for %s: negative duration", key)
	}
	return d, nil
}

// MaskDBSource hides credentials in a postgres DSN before it is logged.
func MaskDBSource(dsn string) string {
	parts := strings.Split(dsn, "@")
	if len(parts) < 2 {
		return "invalid-dsn-format"
	}
	return "postgres://****:****@" + parts[len(parts)-1]
}
