package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"divdataset/internal/errors"

	"gopkg.in/yaml.v3"
)

// Cache backends
const (
	CacheMemory   = "memory"
	CachePostgres = "postgres"
	CacheSQLite   = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Upload    UploadConfig    `yaml:"upload"`
	Render    RenderConfig    `yaml:"render"`
	Profiling ProfilingConfig `yaml:"profiling"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port      string `yaml:"port"`
	GinMode   string `yaml:"gin_mode"`
	APIPrefix string `yaml:"api_prefix"`
}

// CacheConfig selects and configures the session cache
type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	URL             string        `yaml:"url"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// UploadConfig bounds dataset uploads
type UploadConfig struct {
	MaxFileSize    int64   `yaml:"max_file_size"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// RenderConfig controls distribution plots
type RenderConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxConcurrent int  `yaml:"max_concurrent"`
	DPI           int  `yaml:"dpi"`
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string `yaml:"port"`
	Enabled bool   `yaml:"enabled"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8000",
			GinMode:   "release",
			APIPrefix: "/api",
		},
		Cache: CacheConfig{
			Backend:         CacheMemory,
			TTL:             time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Upload: UploadConfig{
			MaxFileSize:    50 * 1024 * 1024, // 50MB
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Render: RenderConfig{
			Enabled:       true,
			MaxConcurrent: 2,
			DPI:           80,
		},
		Profiling: ProfilingConfig{
			Port:    "6060",
			Enabled: false,
		},
		LogLevel: "INFO",
	}
}

// Load reads the optional CONFIG_FILE, applies environment overrides and validates the result
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	applyEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func applyEnv(c *Config) {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.GinMode = getEnvOrDefault("GIN_MODE", c.Server.GinMode)
	c.Server.APIPrefix = getEnvOrDefault("API_PREFIX", c.Server.APIPrefix)

	c.Cache.Backend = strings.ToLower(getEnvOrDefault("CACHE_BACKEND", c.Cache.Backend))
	c.Cache.URL = getEnvOrDefault("CACHE_URL", getEnvOrDefault("DATABASE_URL", c.Cache.URL))
	c.Cache.TTL = getEnvDurationOrDefault("SESSION_TTL", c.Cache.TTL)
	c.Cache.CleanupInterval = getEnvDurationOrDefault("CACHE_CLEANUP_INTERVAL", c.Cache.CleanupInterval)

	c.Upload.MaxFileSize = int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", int(c.Upload.MaxFileSize)))
	c.Upload.RateLimitRPS = getEnvFloatOrDefault("UPLOAD_RATE_LIMIT_RPS", c.Upload.RateLimitRPS)
	c.Upload.RateLimitBurst = getEnvIntOrDefault("UPLOAD_RATE_LIMIT_BURST", c.Upload.RateLimitBurst)

	c.Render.Enabled = getEnvBoolOrDefault("RENDER_ENABLED", c.Render.Enabled)
	c.Render.MaxConcurrent = getEnvIntOrDefault("RENDER_MAX_CONCURRENT", c.Render.MaxConcurrent)
	c.Render.DPI = getEnvIntOrDefault("RENDER_DPI", c.Render.DPI)

	c.Profiling.Port = getEnvOrDefault("PPROF_PORT", c.Profiling.Port)
	c.Profiling.Enabled = getEnvBoolOrDefault("PPROF_ENABLED", c.Profiling.Enabled)

	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if !strings.HasPrefix(config.Server.APIPrefix, "/") {
		return errors.ConfigInvalid("API prefix must start with /")
	}
	switch config.Cache.Backend {
	case CacheMemory:
	case CachePostgres, CacheSQLite:
		if config.Cache.URL == "" {
			return errors.ConfigInvalid("CACHE_URL is required for the " + config.Cache.Backend + " cache backend")
		}
	default:
		return errors.ConfigInvalid("unknown cache backend: " + config.Cache.Backend)
	}
	if config.Cache.TTL <= 0 {
		return errors.ConfigInvalid("session TTL must be positive")
	}
	if config.Upload.MaxFileSize <= 0 {
		return errors.ConfigInvalid("max upload size must be positive")
	}
	if config.Render.MaxConcurrent < 1 {
		return errors.ConfigInvalid("render concurrency must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
