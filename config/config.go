package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads
const EnvPrefix = "STOREFRONT"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	POS       POSConfig
	Cache     CacheConfig
	Refresh   RefreshConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// TrustedProxies lists the proxy IPs/CIDRs allowed to set X-Forwarded-For.
	// Empty means the peer address is always the client address.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// POSConfig holds the point of sale connection settings.
// Missing credentials are reported per load cycle, not here.
type POSConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	RestaurantID      string        `mapstructure:"restaurant_id"`
	LocationID        string        `mapstructure:"location_id"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BaseDelay         time.Duration `mapstructure:"base_delay"`
	HonorRetryAfter   bool          `mapstructure:"honor_retry_after"`
	Jitter            bool          `mapstructure:"jitter"`
	TokenSafetyMargin time.Duration `mapstructure:"token_safety_margin"`
	RateLimit         float64       `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst         int           `mapstructure:"rate_burst"`
	MaxPages          int           `mapstructure:"max_pages"`
	Debug             bool          `mapstructure:"debug"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RefreshConfig controls the background catalog refresh
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 = disabled
}

// HasCredentials reports whether both POS credentials are set
func (c POSConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storefront/")

	// Environment variable settings: pos.client_id -> STOREFRONT_POS_CLIENT_ID
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile reads ./.env into the process environment.
// Variables already set win; a missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.trusted_proxies", []string{})

	// POS defaults
	v.SetDefault("pos.base_url", "https://api.pos.example.com")
	v.SetDefault("pos.client_id", "")
	v.SetDefault("pos.client_secret", "")
	v.SetDefault("pos.restaurant_id", "")
	v.SetDefault("pos.location_id", "")
	v.SetDefault("pos.request_timeout", "10s")
	v.SetDefault("pos.max_attempts", 3)
	v.SetDefault("pos.base_delay", "1s")
	v.SetDefault("pos.honor_retry_after", true)
	v.SetDefault("pos.jitter", false)
	v.SetDefault("pos.token_safety_margin", "300s")
	v.SetDefault("pos.rate_limit", 5.0)
	v.SetDefault("pos.rate_burst", 5)
	v.SetDefault("pos.max_pages", 50)
	v.SetDefault("pos.debug", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "1h")

	// Refresh defaults
	v.SetDefault("refresh.interval", "120s")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)
}

// MaxPOSAttempts caps retries per POS request
const MaxPOSAttempts = 10

// validate validates the configuration
func validate(config *Config) error {
	if config.POS.BaseURL == "" {
		return fmt.Errorf("POS base URL is required (set %s_POS_BASE_URL)", EnvPrefix)
	}

	if config.POS.MaxAttempts < 1 || config.POS.MaxAttempts > MaxPOSAttempts {
		return fmt.Errorf("pos.max_attempts must be between 1 and %d, got: %d", MaxPOSAttempts, config.POS.MaxAttempts)
	}

	if config.POS.RateLimit < 0 {
		return fmt.Errorf("pos.rate_limit must not be negative, got: %v", config.POS.RateLimit)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got: %s", config.Refresh.Interval)
	}

	return nil
}
