package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Server
	Port       string
	CORSOrigin string

	// Assistant gateway
	GeminiAPIKey   string
	GeminiModel    string
	GatewayTimeout time.Duration

	// Conversations
	SessionTTL time.Duration

	// Message rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel string
}

// LoadEnvFile loads key=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("LoadEnvFile: %s: %w", path, err)
	}
	return nil
}

func Load() *Config {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),

		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 30),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// HasGemini reports whether model credentials are configured.
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.GeminiAPIKey != "" && strings.TrimSpace(c.GeminiModel) == "" {
		errs = append(errs, "Gemini model cannot be empty when GEMINI_API_KEY is set")
	}

	if c.GatewayTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid gateway timeout %v: must be at least 1 second", c.GatewayTimeout))
	} else if c.GatewayTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid gateway timeout %v: must be at most 5 minutes", c.GatewayTimeout))
	}

	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at most 24 hours", c.SessionTTL))
	}

	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %v: must be greater than 0", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if strings.ToLower(c.LogLevel) == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if strings.TrimSpace(c.CORSOrigin) == "" {
		errs = append(errs, "CORS origin cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
