package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Defaults matching the ranking service's published behaviour
const (
	DefaultBaseURL        = "http://localhost:8080/api"
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultPageSize       = 50
	DefaultSearchDebounce = 300 * time.Millisecond
)

type Config struct {
	API         APIConfig
	Leaderboard LeaderboardConfig
	App         AppConfig
}

// APIConfig describes how to reach the ranking service
type APIConfig struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

type LeaderboardConfig struct {
	PageSize       int           `validate:"gte=1,lte=100"`
	SearchDebounce time.Duration `validate:"gt=0"`
}

type AppConfig struct {
	Env      string `validate:"oneof=development test staging production"`
	LogLevel string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Load reads configuration from the environment, optionally seeded by a .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("LEADERBOARD_API_BASE_URL", DefaultBaseURL), "/"),
			Timeout: getEnvAsDuration("LEADERBOARD_HTTP_TIMEOUT", DefaultHTTPTimeout),
		},
		Leaderboard: LeaderboardConfig{
			PageSize:       getEnvAsInt("LEADERBOARD_PAGE_SIZE", DefaultPageSize),
			SearchDebounce: getEnvAsDuration("LEADERBOARD_SEARCH_DEBOUNCE", DefaultSearchDebounce),
		},
		App: AppConfig{
			Env:      strings.ToLower(getEnv("ENV", "development")),
			LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section against its struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			return fmt.Errorf("invalid configuration: %s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the app runs with production settings
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
