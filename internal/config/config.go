package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all gateway configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Registry RegistryConfig
	Tenant   TenantConfig
	Flags    FlagsConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisConfig holds shared key/value store settings. An empty Addr runs
// the gateway on an in-process store (self-hosted / dev mode).
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// RegistryConfig holds tenant registry settings.
type RegistryConfig struct {
	URL     string
	APIKey  string //nolint:gosec // G117: registry service key config
	Timeout time.Duration
}

// TenantConfig holds identification, config-cache, and proxy settings.
type TenantConfig struct {
	ConfigTTL        time.Duration
	TokenSecret      string //nolint:gosec // G117: session token secret config
	DefaultRateLimit int    // hourly limit when a tenant record carries none
	BackendTimeout   time.Duration
	PreloadSlugs     []string
}

// FlagsConfig holds feature-flag settings.
type FlagsConfig struct {
	File        string
	Environment string
}

// AdminConfig holds admin API settings. An empty Token disables the
// admin surface entirely.
type AdminConfig struct {
	Token     string //nolint:gosec // G117: admin bearer token config
	RateRPS   float64
	RateBurst int
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production, the
// registry URL and service key must be set explicitly.
func Load() (*Config, error) {
	redisDB, err := getEnvInt("GW_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("GW_SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("GW_SERVER_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	registryTimeout, err := getEnvDuration("GW_REGISTRY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	configTTL, err := getEnvDuration("GW_TENANT_CONFIG_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	backendTimeout, err := getEnvDuration("GW_BACKEND_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	defaultRateLimit, err := getEnvInt("GW_DEFAULT_RATE_LIMIT", 1000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	adminRPS, err := getEnvFloat("GW_ADMIN_RATE_RPS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	adminBurst, err := getEnvInt("GW_ADMIN_RATE_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("GW_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		Redis: RedisConfig{
			Addr:     getEnv("GW_REDIS_ADDR", ""),
			Password: getEnv("GW_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Registry: RegistryConfig{
			URL:     getEnv("GW_REGISTRY_URL", ""),
			APIKey:  getEnv("GW_REGISTRY_API_KEY", ""),
			Timeout: registryTimeout,
		},
		Tenant: TenantConfig{
			ConfigTTL:        configTTL,
			TokenSecret:      getEnv("GW_TENANT_TOKEN_SECRET", ""),
			DefaultRateLimit: defaultRateLimit,
			BackendTimeout:   backendTimeout,
			PreloadSlugs:     getEnvList("GW_TENANT_PRELOAD", nil),
		},
		Flags: FlagsConfig{
			File:        getEnv("GW_FLAGS_FILE", ""),
			Environment: getEnv("GW_FLAGS_ENVIRONMENT", "production"),
		},
		Admin: AdminConfig{
			Token:     getEnv("GW_ADMIN_TOKEN", ""),
			RateRPS:   adminRPS,
			RateBurst: adminBurst,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Registry.URL == "" {
		return errors.New("GW_REGISTRY_URL is required")
	}
	u, err := url.Parse(c.Registry.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("GW_REGISTRY_URL %q is not a valid URL", c.Registry.URL)
	}
	if strings.HasSuffix(c.Registry.URL, "/") {
		return fmt.Errorf("GW_REGISTRY_URL must not end with a slash, got %q", c.Registry.URL)
	}
	if c.Registry.APIKey == "" {
		return errors.New("GW_REGISTRY_API_KEY is required")
	}

	if c.Tenant.ConfigTTL <= 0 {
		return fmt.Errorf("GW_TENANT_CONFIG_TTL must be positive, got %s", c.Tenant.ConfigTTL)
	}
	if c.Tenant.DefaultRateLimit < 1 {
		return fmt.Errorf("GW_DEFAULT_RATE_LIMIT must be >= 1, got %d", c.Tenant.DefaultRateLimit)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("GW_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("GW_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Admin.RateRPS <= 0 {
		return fmt.Errorf("GW_ADMIN_RATE_RPS must be positive, got %g", c.Admin.RateRPS)
	}
	if c.Admin.RateBurst < 1 {
		return fmt.Errorf("GW_ADMIN_RATE_BURST must be >= 1, got %d", c.Admin.RateBurst)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
