// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Judge feed APIs
	Judges []JudgeConfig

	// Sync engine
	Sync SyncConfig

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	// Connection pool settings
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Pool settings
	PoolSize int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// JudgeConfig holds the settings of one judge feed API.
type JudgeConfig struct {
	// Name identifies the judge and is matched against subject handles.
	Name string

	// BaseURL of the feed API.
	BaseURL string

	// APIKey authenticates requests when the judge requires it.
	APIKey string

	// RequestTimeout for a single HTTP call.
	RequestTimeout time.Duration

	// Rate limiting
	RateLimit      float64 // requests per second
	RateLimitBurst int
}

// SyncConfig holds sync engine and dispatcher settings.
type SyncConfig struct {
	// Enabled toggles periodic synchronization.
	Enabled bool

	// Interval between bulk sync runs.
	Interval time.Duration

	// RunOnStart triggers a bulk sync at startup.
	RunOnStart bool

	// Concurrency bounds how many subjects sync in parallel.
	Concurrency int

	// PendingTTL is the safety-net expiry on per-subject pending markers.
	PendingTTL time.Duration

	// SkillTable selects the level threshold table ("classic" or "scaled").
	SkillTable string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Judges:        loadJudgeConfigs(),
		Sync:          loadSyncConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))
	return AppConfig{
		Name:            getEnv("APP_NAME", "cp-training-hub"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		Name:            getEnv("DB_NAME", "cphub"),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		MinConns:        getEnvInt("DB_MIN_CONNS", 2),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

// loadJudgeConfigs parses JUDGE_FEEDS, a comma-separated list of name=baseURL
// pairs. Per-judge API keys come from JUDGE_API_KEY_<NAME>.
func loadJudgeConfigs() []JudgeConfig {
	feeds := getEnv("JUDGE_FEEDS", "")
	if feeds == "" {
		return nil
	}

	var judges []JudgeConfig
	for _, entry := range strings.Split(feeds, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, baseURL, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		judges = append(judges, JudgeConfig{
			Name:           name,
			BaseURL:        strings.TrimSpace(baseURL),
			APIKey:         getEnv("JUDGE_API_KEY_"+strings.ToUpper(name), ""),
			RequestTimeout: getEnvDuration("JUDGE_REQUEST_TIMEOUT", 30*time.Second),
			RateLimit:      getEnvFloat("JUDGE_RATE_LIMIT", 2.0),
			RateLimitBurst: getEnvInt("JUDGE_RATE_LIMIT_BURST", 5),
		})
	}
	return judges
}

func loadSyncConfig() SyncConfig {
	return SyncConfig{
		Enabled:     getEnvBool("SYNC_ENABLED", true),
		Interval:    getEnvDuration("SYNC_INTERVAL", 10*time.Minute),
		RunOnStart:  getEnvBool("SYNC_RUN_ON_START", false),
		Concurrency: getEnvInt("SYNC_CONCURRENCY", 4),
		PendingTTL:  getEnvDuration("SYNC_PENDING_TTL", 15*time.Minute),
		SkillTable:  getEnv("SKILL_TABLE", "classic"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Sync.SkillTable != "classic" && c.Sync.SkillTable != "scaled" {
		errs = append(errs, "SKILL_TABLE must be classic or scaled")
	}
	if c.Sync.Concurrency < 1 {
		errs = append(errs, "SYNC_CONCURRENCY must be at least 1")
	}
	if c.App.Environment == EnvProduction {
		if c.Database.Password == "" {
			errs = append(errs, "DB_PASSWORD is required in production")
		}
		if len(c.Judges) == 0 {
			errs = append(errs, "JUDGE_FEEDS is required in production")
		}
	}
	for _, j := range c.Judges {
		if j.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("judge %s has no base URL", j.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
