// Package config loads and validates engine configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// configuration surface named in the specification: database access, the
// locale/collation layer, DEM/land-cover services, priority tables, the
// security deny-list, and autoreload.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Locale     LocaleConfig     `yaml:"locale"`
	Dem        DemConfig        `yaml:"dem"`
	Priorities PriorityConfig   `yaml:"priorities"`
	Security   SecurityConfig   `yaml:"security"`
	Autoreload AutoreloadConfig `yaml:"autoreload"`
	Strict     StrictConfig     `yaml:"strict"`
	Mock       bool             `yaml:"mock"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
}

// ServerConfig holds HTTP front-end server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig holds the connection parameters for the relational source
// and the logical schema's row filters.
type DatabaseConfig struct {
	Host            string                    `yaml:"host"`
	Port            int                       `yaml:"port"`
	Database        string                    `yaml:"database"`
	User            string                    `yaml:"user"`
	Password        string                    `yaml:"password"`
	SSLMode         string                    `yaml:"sslMode"`
	MaxOpenConns    int                       `yaml:"maxOpenConns"`
	MaxIdleConns    int                       `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration             `yaml:"connMaxLifetime"`
	Disable         bool                      `yaml:"disable"`
	Overrides       map[string]DatabaseConfig `yaml:"overrides"`
	Where           WhereConfig               `yaml:"where"`
}

// WhereConfig holds additional row filters applied to the two main loader
// queries.
type WhereConfig struct {
	Geonames          string `yaml:"geonames"`
	AlternateGeonames string `yaml:"alternateGeonames"`
}

// DSN returns a lib/pq-compatible data source name, applying any override
// registered for a hostname prefix matching Host.
func (d DatabaseConfig) DSN() string {
	for prefix, override := range d.Overrides {
		if strings.HasPrefix(d.Host, prefix) {
			return override.dsn()
		}
	}
	return d.dsn()
}

func (d DatabaseConfig) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig controls the name-search and database-backed result caches.
type CacheConfig struct {
	MaxSize               int  `yaml:"maxSize"`
	CacheEmptyNameResults bool `yaml:"cacheEmptyNameResults"`
}

// LocaleConfig controls the suggest index's normalization pipeline.
type LocaleConfig struct {
	Locale             string   `yaml:"locale"`
	AsciiAutocomplete  bool     `yaml:"asciiAutocomplete"`
	FallbackEncodings  []string `yaml:"fallbackEncodings"`
	RemoveUnderscores  bool     `yaml:"removeUnderscores"`
}

// DemConfig points at the injected elevation and land-cover services.
type DemConfig struct {
	DemDir           string `yaml:"demdir"`
	LandCoverDir     string `yaml:"landcoverdir"`
	MaxDemResolution int    `yaml:"maxdemresolution"`
}

// PriorityConfig drives the ranker: raw tables plus named feature maps
// referenced per-ISO2, matching the original engine's named LocationPriority
// tables rather than one flat per-country map.
type PriorityConfig struct {
	Match       int                          `yaml:"match"`
	Populations map[string]int               `yaml:"populations"`
	Areas       map[string]int               `yaml:"areas"`
	Countries   map[string]int               `yaml:"countries"`
	Features    map[string]string            `yaml:"features"`
	FeatureMaps map[string]map[string]int    `yaml:"featuremaps"`
}

// SecurityConfig holds the name-search deny list.
type SecurityConfig struct {
	Disable bool     `yaml:"disable"`
	Names   DenyList `yaml:"names"`
}

// DenyList holds regex patterns rejected by name_search.
type DenyList struct {
	Deny []string `yaml:"deny"`
}

// AutoreloadConfig controls the periodic fingerprint-check task.
type AutoreloadConfig struct {
	Period      time.Duration `yaml:"period"`
	GracePeriod time.Duration `yaml:"gracePeriod"`
}

// StrictConfig controls whether empty load phases are treated as errors.
type StrictConfig struct {
	Strict bool `yaml:"strict"`
}

// SnapshotConfig controls the optional on-disk warm-start snapshot.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// KafkaConfig holds broker and topic settings for reload/query telemetry.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to Kafka topic strings.
type KafkaTopics struct {
	ReloadEvents    string `yaml:"reloadEvents"`
	QueryEvents     string `yaml:"queryEvents"`
	CacheInvalidate string `yaml:"cacheInvalidate"`
}

// RedisConfig holds connection parameters for cross-instance cache
// invalidation broadcast.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
	Channel  string `yaml:"channel"`
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

// Load reads a YAML config file (if provided) and applies environment
// variable overrides, returning a Config populated with sane defaults for
// any value the file leaves unset.
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

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "geonames",
			User:            "geonames",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Cache: CacheConfig{
			MaxSize:               10000,
			CacheEmptyNameResults: true,
		},
		Locale: LocaleConfig{
			Locale:            "en_US.UTF-8",
			AsciiAutocomplete: true,
			FallbackEncodings: []string{"ISO-8859-1", "windows-1252"},
			RemoveUnderscores: true,
		},
		Dem: DemConfig{
			MaxDemResolution: 100,
		},
		Priorities: PriorityConfig{
			Match:       100,
			Populations: map[string]int{},
			Areas:       map[string]int{},
			Countries:   map[string]int{},
			Features:    map[string]string{},
			FeatureMaps: map[string]map[string]int{},
		},
		Autoreload: AutoreloadConfig{
			Period:      0,
			GracePeriod: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "geonames-engine",
			Topics: KafkaTopics{
				ReloadEvents:    "geonames.reload",
				QueryEvents:     "geonames.query",
				CacheInvalidate: "geonames.cache-invalidate",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			Channel:  "geonames.cache-invalidate",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Dir:     "./data/snapshots",
		},
	}
}

// applyEnvOverrides reads GEONAMES_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEONAMES_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GEONAMES_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("GEONAMES_DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("GEONAMES_DATABASE_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("GEONAMES_DATABASE_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("GEONAMES_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("GEONAMES_DATABASE_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("GEONAMES_DATABASE_DISABLE"); v != "" {
		cfg.Database.Disable = v == "true" || v == "1"
	}
	if v := os.Getenv("GEONAMES_LOCALE"); v != "" {
		cfg.Locale.Locale = v
	}
	if v := os.Getenv("GEONAMES_STRICT"); v != "" {
		cfg.Strict.Strict = v == "true" || v == "1"
	}
	if v := os.Getenv("GEONAMES_MOCK"); v != "" {
		cfg.Mock = v == "true" || v == "1"
	}
	if v := os.Getenv("GEONAMES_AUTORELOAD_PERIOD"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil {
			cfg.Autoreload.Period = time.Duration(mins) * time.Minute
		}
	}
	if v := os.Getenv("GEONAMES_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("GEONAMES_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GEONAMES_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GEONAMES_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GEONAMES_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("GEONAMES_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxSize = n
		}
	}
}
