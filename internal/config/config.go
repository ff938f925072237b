// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"
)

// Config holds all configuration values for the PumpWatch engine.
type Config struct {
	// Email
	EmailAddress  string
	EmailPassword string
	EmailTo       string
	SMTPHost      string
	SMTPPort      int

	// GeckoTerminal
	Network     string
	GeckoAPIURL string
	GeckoWebURL string
	HTTPTimeout time.Duration

	// Detection
	VolumeThreshold float64
	CheckInterval   time.Duration

	// Alert broadcast (WebSocket), empty disables
	AlertWSAddr string

	// Metrics, 0 disables
	PrometheusPort int

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Email
		EmailAddress:  getEnv("EMAIL_ADDRESS", ""),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 465),

		// GeckoTerminal
		Network:     getEnv("CHAIN", "eth"),
		GeckoAPIURL: getEnv("GECKO_API_URL", "https://api.geckoterminal.com/api/v2"),
		GeckoWebURL: getEnv("GECKO_WEB_URL", "https://www.geckoterminal.com"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		// Detection
		VolumeThreshold: getEnvFloat("VOLUME_THRESHOLD", 2.0),
		CheckInterval:   getEnvDuration("CHECK_INTERVAL", 300*time.Second),

		AlertWSAddr:    getEnv("ALERT_WS_ADDR", ""),
		PrometheusPort: getEnvInt("PROMETHEUS_PORT", 0),

		// UI
		EnableTUI:     getEnvBool("ENABLE_TUI", false),
		UIRefreshRate: time.Duration(getEnvInt("UI_REFRESH_MS", 500)) * time.Millisecond,

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
	cfg.EmailTo = getEnv("EMAIL_TO", cfg.EmailAddress)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Network) == "" {
		return fmt.Errorf("CHAIN is required")
	}

	if c.GeckoAPIURL == "" {
		return fmt.Errorf("GECKO_API_URL is required")
	}

	if c.VolumeThreshold <= 0 {
		return fmt.Errorf("VOLUME_THRESHOLD must be positive")
	}

	if c.CheckInterval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be positive")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}

	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}

	if c.PrometheusPort < 0 || c.PrometheusPort > 65535 {
		return fmt.Errorf("PROMETHEUS_PORT must be between 0 and 65535")
	}

	return nil
}

// EmailEnabled reports whether both SMTP credentials are present.
func (c *Config) EmailEnabled() bool {
	return c.EmailAddress != "" && c.EmailPassword != ""
}

// MaskedEmailPassword returns the password with most characters hidden for logging.
func (c *Config) MaskedEmailPassword() string {
	return maskSecret(c.EmailPassword)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration retrieves an environment variable as a duration or returns a default.
// A bare integer is read as seconds; anything else goes through str2duration ("5m", "1h30m", "2d").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := str2duration.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
