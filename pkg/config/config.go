// Package config provides client configuration from environment variables
// with .env support for local development. Configuration is validated on
// load so a misconfigured client fails at startup rather than mid-session.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	client := api.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tracker client.
type Config struct {
	Backend BackendConfig
	Storage StorageConfig
	Log     LogConfig
}

// BackendConfig holds the backend origin and the per-request timeout for
// the relay client.
type BackendConfig struct {
	URL     string        // backend origin, e.g. "http://localhost:8080"
	Timeout time.Duration // per-request round-trip bound
}

// StorageConfig holds client-local persistence settings.
type StorageConfig struct {
	TokenFile string // token file path; empty means the user config dir
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string // zerolog level name: debug, info, warn, error
}

// Load reads and validates configuration from environment variables. A
// .env file is loaded when present (local development) and silently
// skipped otherwise.
//
// Required environment variables:
//   - BACKEND_URL: origin of the task-tracker backend
//
// Optional variables (with defaults): HTTP_TIMEOUT (15s), TOKEN_FILE
// (user config dir), LOG_LEVEL (info).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	backendURL, err := getEnvRequired("BACKEND_URL")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Backend: BackendConfig{
			URL:     backendURL,
			Timeout: getEnvAsDuration("HTTP_TIMEOUT", 15*time.Second),
		},
		Storage: StorageConfig{
			TokenFile: getEnv("TOKEN_FILE", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Validate checks that the loaded configuration is usable: the backend URL
// parses and the timeout is positive. Called automatically by Load.
func (c *Config) Validate() error {
	parsed, err := url.ParseRequestURI(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend URL must be http or https, got %q", parsed.Scheme)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequired retrieves a required environment variable.
// Returns an error if the variable is not set or is empty.
func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// with a default fallback. Supports Go duration format: "300ms", "1.5h".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
