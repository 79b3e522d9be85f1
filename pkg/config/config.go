// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Indexer, Search, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index file formats understood by the store.
const (
	FormatText   = "text"
	FormatBinary = "binary"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables the message store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. No brokers means the
// services run without an event bus.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ConversationIngest string `yaml:"conversationIngest"`
	IndexComplete      string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls where chatlogs are read from, where indexes are
// written, and how the parallel build is sized.
type IndexerConfig struct {
	DataDir       string   `yaml:"dataDir"`
	ChatlogDir    string   `yaml:"chatlogDir"`
	Workers       int      `yaml:"workers"`
	Language      string   `yaml:"language"`
	Formats       []string `yaml:"formats"`
	DocIDColumn   string   `yaml:"docIDColumn"`
	MessageColumn string   `yaml:"messageColumn"`
}

// SearchConfig controls ranking parameters and query execution limits.
type SearchConfig struct {
	K1                   float64 `yaml:"k1"`
	B                    float64 `yaml:"b"`
	DefaultLimit         int     `yaml:"defaultLimit"`
	MaxResults           int     `yaml:"maxResults"`
	MaxConcurrentQueries int     `yaml:"maxConcurrentQueries"`
	RegistrySize         int     `yaml:"registrySize"`
	Format               string  `yaml:"format"`
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// Validate rejects values the indexer and searcher cannot work with.
func (c *Config) Validate() error {
	if c.Indexer.Workers < 0 {
		return fmt.Errorf("indexer.workers must not be negative, got %d", c.Indexer.Workers)
	}
	if len(c.Indexer.Formats) == 0 {
		return fmt.Errorf("indexer.formats must name at least one format")
	}
	for _, f := range c.Indexer.Formats {
		if !validFormat(f) {
			return fmt.Errorf("indexer.formats: unknown format %q", f)
		}
	}
	if !validFormat(c.Search.Format) {
		return fmt.Errorf("search.format: unknown format %q", c.Search.Format)
	}
	if c.Search.K1 < 0 || c.Search.B < 0 || c.Search.B > 1 {
		return fmt.Errorf("search: k1 must be >= 0 and b within [0,1], got k1=%v b=%v", c.Search.K1, c.Search.B)
	}
	if c.Search.MaxResults > 0 && c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search.defaultLimit %d exceeds search.maxResults %d", c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

func validFormat(f string) bool {
	return f == FormatText || f == FormatBinary
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "chatsearch",
			User:            "chatsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "chatsearch-indexer",
			Topics: KafkaTopics{
				ConversationIngest: "conversation-ingest",
				IndexComplete:      "index-complete",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			DataDir:       "data/piis",
			ChatlogDir:    "data/chatlogs",
			Workers:       0,
			Language:      "english",
			Formats:       []string{FormatBinary, FormatText},
			DocIDColumn:   "docNo",
			MessageColumn: "message",
		},
		Search: SearchConfig{
			K1:                   1.5,
			B:                    0.75,
			DefaultLimit:         10,
			MaxResults:           100,
			MaxConcurrentQueries: 8,
			RegistrySize:         64,
			Format:               FormatBinary,
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

// applyEnvOverrides reads CS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CS_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("CS_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("CS_INDEXER_LANGUAGE"); v != "" {
		cfg.Indexer.Language = v
	}
	if v := os.Getenv("CS_SEARCH_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.K1 = f
		}
	}
	if v := os.Getenv("CS_SEARCH_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.B = f
		}
	}
	if v := os.Getenv("CS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
