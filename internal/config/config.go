package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`

	// Database (file path for sqlite, postgres:// DSN for postgres)
	DatabaseURL string `env:"DATABASE_URL" default:"./data/mangako.db"`

	// Search cache (empty REDIS_URL keeps the cache in memory)
	RedisURL              string        `env:"REDIS_URL"`
	RedisPassword         string        `env:"REDIS_PASSWORD"`
	CacheTTL              time.Duration `env:"CACHE_TTL" default:"0"`
	SearchCacheMaxEntries int           `env:"SEARCH_CACHE_MAX_ENTRIES" default:"0"`

	// External APIs
	MangaDexAPIURL string `env:"MANGADEX_API_URL" default:"https://api.mangadex.org"`
	MangaDexAPIKey string `env:"MANGADEX_API_KEY"`
	CoverLocale    string `env:"COVER_LOCALE" default:"ja"`

	// Paging
	VolumePageSize int `env:"VOLUME_PAGE_SIZE" default:"50"`
	SearchPageSize int `env:"SEARCH_PAGE_SIZE" default:"6"`

	// Library refresh
	RefreshWorkers        int           `env:"REFRESH_WORKERS" default:"4"`
	RefreshInterval       time.Duration `env:"REFRESH_INTERVAL" default:"6h"`
	DeleteVolumesOnRemove bool          `env:"DELETE_VOLUMES_ON_REMOVE" default:"false"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// A missing .env is fine, system env vars still apply
	if err := godotenv.Load(".env"); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Ports
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}

	// Database
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", "./data/mangako.db"); err != nil {
		return nil, err
	}

	// Search cache
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.CacheTTL, "CACHE_TTL", 0); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.SearchCacheMaxEntries, "SEARCH_CACHE_MAX_ENTRIES", 0); err != nil {
		return nil, err
	}

	// External APIs
	if err := loadEnvString(&config.MangaDexAPIURL, "MANGADEX_API_URL", "https://api.mangadex.org"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.MangaDexAPIKey, "MANGADEX_API_KEY", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.CoverLocale, "COVER_LOCALE", "ja"); err != nil {
		return nil, err
	}

	// Paging
	if err := loadEnvInt(&config.VolumePageSize, "VOLUME_PAGE_SIZE", 50); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.SearchPageSize, "SEARCH_PAGE_SIZE", 6); err != nil {
		return nil, err
	}

	// Library refresh
	if err := loadEnvInt(&config.RefreshWorkers, "REFRESH_WORKERS", 4); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.RefreshInterval, "REFRESH_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.DeleteVolumesOnRemove, "DELETE_VOLUMES_ON_REMOVE", false); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// loadEnvDuration accepts Go durations ("90s") or a plain number of seconds.
func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			*target = time.Duration(secs) * time.Second
			return nil
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}

	if c.VolumePageSize < 1 || c.VolumePageSize > 100 {
		errors = append(errors, "VOLUME_PAGE_SIZE must be between 1 and 100")
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > 100 {
		errors = append(errors, "SEARCH_PAGE_SIZE must be between 1 and 100")
	}
	if c.SearchCacheMaxEntries < 0 {
		errors = append(errors, "SEARCH_CACHE_MAX_ENTRIES must not be negative")
	}
	if c.RefreshWorkers < 1 {
		errors = append(errors, "REFRESH_WORKERS must be at least 1")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// UsesPostgres reports whether DATABASE_URL points at a postgres server.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// UsesRedis reports whether the search cache should live in redis.
func (c *Config) UsesRedis() bool {
	return c.RedisURL != ""
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
