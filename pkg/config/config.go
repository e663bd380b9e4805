// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Search, Dataset, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Search   SearchConfig   `yaml:"search"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	// RateLimit is requests per second per client address; 0 disables it.
	RateLimit       float64       `yaml:"rateLimit"`
	RateLimitBurst  int           `yaml:"rateLimitBurst"`
}

// maxWriteMargin caps how much of WriteTimeout is reserved for writing the
// timeout response itself.
const maxWriteMargin = 5 * time.Second

// RequestTimeout is the handler deadline enforced by the timeout middleware.
// It ends before WriteTimeout so the 503 body still reaches the client.
// Zero when WriteTimeout is unset.
func (s ServerConfig) RequestTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return 0
	}
	return s.WriteTimeout - min(s.WriteTimeout/10, maxWriteMargin)
}

// SearchConfig controls snippet extraction and parallel query execution.
type SearchConfig struct {
	MaxSnippets     int  `yaml:"maxSnippets"`
	SnippetMaxChars int  `yaml:"snippetMaxChars"`
	Parallelism     int  `yaml:"parallelism"`
	DefaultSnippets bool `yaml:"defaultSnippets"`
}

// DatasetConfig points at a directory of PDF/text files loaded at startup.
type DatasetConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// IngestConfig bounds per-document work during uploads and loads.
type IngestConfig struct {
	ExtractTimeout  time.Duration `yaml:"extractTimeout"`
	AnalyticsBuffer int           `yaml:"analyticsBuffer"`
}

// PostgresConfig holds PostgreSQL connection parameters for the optional
// startup document source and the analytics snapshot table.
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslMode"`
	// Table is read once at startup; empty skips the document source.
	Table string `yaml:"table"`
	// SnapshotTable receives periodic analytics snapshots; empty disables
	// them.
	SnapshotTable    string        `yaml:"snapshotTable"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	MaxOpenConns     int           `yaml:"maxOpenConns"`
	MaxIdleConns     int           `yaml:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
	// AggregateFromTopic feeds /api/analytics from the analytics topic
	// instead of local events, so every instance reports the same totals.
	AggregateFromTopic bool `yaml:"aggregateFromTopic"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest  string `yaml:"documentIngest"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			MaxUploadBytes:  64 << 20,
			RateLimitBurst:  20,
		},
		Search: SearchConfig{
			MaxSnippets:     3,
			SnippetMaxChars: 150,
			Parallelism:     0,
			DefaultSnippets: true,
		},
		Dataset: DatasetConfig{
			Enabled: false,
			Dir:     "dataset",
		},
		Ingest: IngestConfig{
			ExtractTimeout:  30 * time.Second,
			AnalyticsBuffer: 10000,
		},
		Postgres: PostgresConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "textsearch",
			User:             "textsearch",
			Password:         "localdev",
			SSLMode:          "disable",
			Table:            "documents",
			SnapshotTable:    "analytics_snapshots",
			SnapshotInterval: time.Minute,
			MaxOpenConns:     5,
			MaxIdleConns:     2,
			ConnMaxLifetime:  5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "textsearch-group",
			Topics: KafkaTopics{
				DocumentIngest:  "document-ingest",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative")
	}
	if c.Search.MaxSnippets < 0 {
		return fmt.Errorf("search.maxSnippets must not be negative")
	}
	if c.Search.SnippetMaxChars <= 0 {
		return fmt.Errorf("search.snippetMaxChars must be positive")
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if !logger.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}
	if c.Postgres.Enabled && c.Postgres.Table == "" && c.Postgres.SnapshotTable == "" {
		return fmt.Errorf("postgres is enabled but neither postgres.table nor postgres.snapshotTable is set")
	}
	if c.Postgres.SnapshotTable != "" && c.Postgres.SnapshotInterval <= 0 {
		return fmt.Errorf("postgres.snapshotInterval must be positive")
	}
	return nil
}

// applyEnvOverrides reads TS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TS_SERVER_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("TS_SERVER_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	if v := os.Getenv("TS_SEARCH_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Parallelism = n
		}
	}
	if v := os.Getenv("TS_DATASET_DIR"); v != "" {
		cfg.Dataset.Dir = v
		cfg.Dataset.Enabled = true
	}
	if v := os.Getenv("TS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
