// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Postgres, Redis, Kafka, Index, Geofence, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Index    IndexConfig    `yaml:"index"`
	Geofence GeofenceConfig `yaml:"geofence"`
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

// PostgresConfig holds PostgreSQL connection parameters for the catalog
// source, including the gym and stop table names to pull from.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	GymTable        string        `yaml:"gymTable"`
	StopTable       string        `yaml:"stopTable"`
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

// RedisConfig holds Redis connection and result-caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CatalogRefresh  string `yaml:"catalogRefresh"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// IndexConfig controls the q-gram index: gram length, scoring method,
// catalog source selection, and the refresh cadence.
type IndexConfig struct {
	// Q is the q-gram length.
	Q int `yaml:"q"`
	// Scoring selects the alignment scorer: levenshtein,
	// needleman_wunsch, or affine_gaps. Validated lazily at first query.
	Scoring string `yaml:"scoring"`
	// Source is either "postgres" or "csv".
	Source string `yaml:"source"`
	// CSVPath is the catalog export consumed when Source is "csv".
	CSVPath string `yaml:"csvPath"`
	// DefaultK and MaxK bound the number of matches per query.
	DefaultK int `yaml:"defaultK"`
	MaxK     int `yaml:"maxK"`
	// RefreshInterval is how often the catalog is re-pulled and the index
	// rebuilt; 0 disables periodic refresh.
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// GeofenceConfig maps channel identifiers to fence files.
type GeofenceConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Channels map[string]string `yaml:"channels"`
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
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
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
			Host:            "localhost",
			Port:            5432,
			Database:        "poisearch",
			User:            "poisearch",
			Password:        "localdev",
			SSLMode:         "disable",
			GymTable:        "forts",
			StopTable:       "pokestops",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "poisearch-group",
			Topics: KafkaTopics{
				CatalogRefresh:  "catalog-refresh",
				AnalyticsEvents: "analytics-events",
			},
		},
		Index: IndexConfig{
			Q:               3,
			Scoring:         "affine_gaps",
			Source:          "postgres",
			DefaultK:        5,
			MaxK:            50,
			RefreshInterval: 6 * time.Hour,
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

// applyEnvOverrides reads PS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("PS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PS_INDEX_Q"); v != "" {
		if q, err := strconv.Atoi(v); err == nil {
			cfg.Index.Q = q
		}
	}
	if v := os.Getenv("PS_INDEX_SCORING"); v != "" {
		cfg.Index.Scoring = v
	}
	if v := os.Getenv("PS_INDEX_SOURCE"); v != "" {
		cfg.Index.Source = v
	}
	if v := os.Getenv("PS_INDEX_CSV_PATH"); v != "" {
		cfg.Index.CSVPath = v
	}
	if v := os.Getenv("PS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
