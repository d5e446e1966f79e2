package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name in the env tags below.
const EnvPrefix = "KEEPWARM_"

// Config holds all application configuration.
type Config struct {
	// General
	URL      string `env:"URL"`
	Interval string `env:"INTERVAL"` // "min-max" seconds
	Verbose  bool   `env:"VERBOSE"`

	// Session persistence
	Store            string        `env:"STORE"` // "dir", "sqlite", "redis"
	SessionDir       string        `env:"SESSION_DIR"`
	SQLitePath       string        `env:"SQLITE_PATH"`
	RedisURL         string        `env:"REDIS_URL"`
	RedisKey         string        `env:"REDIS_KEY"`
	SessionTTL       time.Duration `env:"SESSION_TTL"`
	ReuseProbability float64       `env:"REUSE_PROBABILITY"`

	// HTTP
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS"`

	// Rate limiting
	RatePerSecond float64 `env:"RATE_PER_SECOND"`
	RateBurst     int     `env:"RATE_BURST"`

	// Politeness and routing
	RespectRobots bool   `env:"RESPECT_ROBOTS"`
	ProxyFile     string `env:"PROXIES"` // one proxy URL per line

	// Logging
	LogFile       string `env:"LOG_FILE"`
	LogFormat     string `env:"LOG_FORMAT"` // "text" or "json"
	BackgroundLog string `env:"BACKGROUND_LOG"`

	// HTTP control server
	HTTPPort string `env:"HTTP_PORT"`
	APIKey   string `env:"API_KEY"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		URL:              "https://example.com/",
		Interval:         "60-240",
		Store:            "dir",
		SessionDir:       "sessions",
		RedisKey:         "keepwarm:sessions",
		SessionTTL:       24 * time.Hour,
		ReuseProbability: 0.7,
		RequestTimeout:   10 * time.Second,
		MaxAttempts:      3,
		RatePerSecond:    1.0,
		RateBurst:        1,
		RespectRobots:    false,
		LogFormat:        "text",
		BackgroundLog:    "keepwarm.log",
		HTTPPort:         "8080",
	}
}

// LoadFromEnv loads .env file (if present) then overrides config from
// KEEPWARM_-prefixed environment variables. Unset variables keep their
// current value.
func (c *Config) LoadFromEnv() error {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	// PaaS platforms hand out the listen port unprefixed.
	if v := os.Getenv("PORT"); v != "" && os.Getenv(EnvPrefix+"HTTP_PORT") == "" {
		c.HTTPPort = v
	}
	return c.Validate()
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Store {
	case "dir", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Store == "redis" && c.RedisURL == "" {
		return fmt.Errorf("store redis needs %sREDIS_URL", EnvPrefix)
	}
	if c.ReuseProbability < 0 || c.ReuseProbability > 1 {
		return fmt.Errorf("reuse probability %v outside [0, 1]", c.ReuseProbability)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RatePerSecond <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("rate limit needs a positive rate and burst")
	}
	return nil
}
