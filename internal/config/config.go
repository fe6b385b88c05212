// Package config loads process configuration from the environment (with .env
// support) and the tracking tuning values from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backends selectable through the environment.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendPostGIS = "postgis"
)

// Config holds all application configuration
type Config struct {
	AppEnv string `validate:"required"`
	Port   int    `validate:"gt=0"`

	Postgres PostgresConfig
	Redis    RedisConfig

	CacheBackend   string `validate:"oneof=memory redis"`
	LockBackend    string `validate:"oneof=memory redis"`
	SpatialBackend string `validate:"oneof=memory postgis"`

	Geodynamics GeodynamicsConfig
	Jobs        JobsConfig
	Simulation  SimulationConfig

	Tracking Tracking
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

// DSN builds the connection string in the form both lib/pq and pgx accept.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type GeodynamicsConfig struct {
	MinisiteURL string `validate:"omitempty,url"`
	APIURL      string `validate:"omitempty,url"`
	Timeout     time.Duration
}

type JobsConfig struct {
	IngestInterval       time.Duration `validate:"gt=0"`
	NotificationInterval time.Duration `validate:"gt=0"`
	StatsInterval        time.Duration `validate:"gt=0"`
	// IngestLockTTL bounds how long one ingest cycle may hold the ingest lock.
	IngestLockTTL time.Duration `validate:"gt=0"`
}

type SimulationConfig struct {
	Path  string
	Epoch time.Time
}

// Load reads configuration from environment variables, after merging a .env
// file when one is present. TRACKING_CONFIG may point to a YAML file that
// overrides the tracking defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnvInt("PORT", 8080),
		Postgres: PostgresConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			User:     os.Getenv("PG_USER"),
			Password: os.Getenv("PG_PASSWORD"),
			DB:       os.Getenv("PG_DB"),
			SSLMode:  getEnv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		CacheBackend:   getEnv("CACHE_BACKEND", BackendMemory),
		LockBackend:    getEnv("LOCK_BACKEND", BackendMemory),
		SpatialBackend: getEnv("SPATIAL_BACKEND", BackendMemory),
		Geodynamics: GeodynamicsConfig{
			MinisiteURL: os.Getenv("GEODYNAMICS_MINISITE_URL"),
			APIURL:      os.Getenv("GEODYNAMICS_API_URL"),
			Timeout:     getEnvDuration("GEODYNAMICS_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			IngestInterval:       getEnvDuration("INGEST_INTERVAL", 20*time.Second),
			NotificationInterval: getEnvDuration("NOTIFICATION_INTERVAL", time.Minute),
			StatsInterval:        getEnvDuration("STATS_INTERVAL", 30*time.Second),
			IngestLockTTL:        getEnvDuration("INGEST_LOCK_TTL", 2*time.Minute),
		},
		Simulation: SimulationConfig{
			Path: os.Getenv("SIMULATION_PATH"),
		},
		Tracking: DefaultTracking(),
	}

	if epoch := os.Getenv("SIMULATION_EPOCH"); epoch != "" {
		t, err := time.Parse(time.RFC3339, epoch)
		if err != nil {
			return nil, fmt.Errorf("invalid SIMULATION_EPOCH %q: %w", epoch, err)
		}
		cfg.Simulation.Epoch = t
	}

	if path := os.Getenv("TRACKING_CONFIG"); path != "" {
		tracking, err := LoadTracking(path)
		if err != nil {
			return nil, err
		}
		cfg.Tracking = *tracking
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags on the whole configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadTracking reads a YAML tuning file on top of DefaultTracking.
func LoadTracking(path string) (*Tracking, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracking config: %w", err)
	}
	return ParseTracking(data)
}

// ParseTracking decodes YAML tuning values; absent keys keep their defaults.
func ParseTracking(data []byte) (*Tracking, error) {
	t := DefaultTracking()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tracking config: %w", err)
	}
	if err := validator.New().Struct(t); err != nil {
		return nil, fmt.Errorf("invalid tracking config: %w", err)
	}
	return &t, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
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
