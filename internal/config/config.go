// Package config loads the application configuration from an optional YAML
// file plus environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig selects the SQL driver and connection pool settings.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DB_DRIVER"`
	DSN             string        `yaml:"dsn" env:"DB_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
}

// IngestionConfig controls the remote feed updater.
type IngestionConfig struct {
	Enabled      bool          `yaml:"enabled" env:"INGEST_ENABLED"`
	SourceURL    string        `yaml:"source_url" env:"INGEST_SOURCE_URL"`
	GameProvider string        `yaml:"game_provider" env:"INGEST_GAME_PROVIDER"`
	Schedule     string        `yaml:"schedule" env:"INGEST_SCHEDULE"`
	RawDir       string        `yaml:"raw_dir" env:"INGEST_RAW_DIR"`
	Retention    int           `yaml:"retention" env:"INGEST_RETENTION"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"INGEST_FETCH_TIMEOUT"`
}

// CacheConfig controls the optional Redis cache for analysis responses. An
// empty address disables caching.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" env:"CACHE_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"CACHE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"CACHE_REDIS_DB"`
	TTL           time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

// HTTPConfig holds middleware settings.
type HTTPConfig struct {
	RateLimitPerSecond float64  `yaml:"rate_limit_per_second" env:"HTTP_RATE_LIMIT_PER_SECOND"`
	RateLimitBurst     int      `yaml:"rate_limit_burst" env:"HTTP_RATE_LIMIT_BURST"`
	CORSOrigins        []string `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS"`
}

// LoggingConfig mirrors pkg/logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Output string `yaml:"output" env:"LOG_OUTPUT"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Cache     CacheConfig     `yaml:"cache"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration used when no file or environment
// overrides are present: a local sqlite database and the public feed.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:lotterylab.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Ingestion: IngestionConfig{
			Enabled:      true,
			SourceURL:    "https://www.mbnet.com.pl/dl.txt",
			GameProvider: "mbnet",
			Schedule:     "@every 6h",
			RawDir:       "data/raw",
			Retention:    30,
			FetchTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		HTTP: HTTPConfig{
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
			CORSOrigins:        []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_PATH (or config.yaml when present), then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the application cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Ingestion.Enabled {
		if c.Ingestion.SourceURL == "" {
			return fmt.Errorf("ingestion source_url is required when ingestion is enabled")
		}
		if _, err := cron.ParseStandard(c.Ingestion.Schedule); err != nil {
			return fmt.Errorf("invalid ingestion schedule %q: %w", c.Ingestion.Schedule, err)
		}
	}
	return nil
}
