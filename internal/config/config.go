package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/trainingboard/pkg"

	"github.com/BurntSushi/toml"
)

var ErrConfigNotFound = errors.New("config file not found")

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"

	defaultWindowWeeks              = 18
	defaultAggregatesCacheSizeMB    = 32
	defaultAggregatesCacheTTLSec    = 60
	defaultLoginRateLimitAllowedMin = 30
)

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// workouts store
	StoreDriver      string `toml:"store_driver"`
	PostgresHost     string `toml:"postgres_host"`
	PostgresPort     string `toml:"postgres_port"`
	PostgresDBName   string `toml:"postgres_db_name"`
	PostgresMaxConns int32  `toml:"postgres_max_conns"`
	MongoURI         string `toml:"mongo_uri"`
	MongoDBName      string `toml:"mongo_db_name"`

	// sessions
	RedisHost                   string `toml:"redis_host"`
	RedisPort                   string `toml:"redis_port"`
	LoginRateLimitAllowedPerMin int    `toml:"login_rate_limit_allowed_per_min"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// training load reports, an omitted clamp key means clamping on
	DefaultWindowWeeks        int   `toml:"default_window_weeks"`
	ClampNegativeResidual     *bool `toml:"clamp_negative_residual"`
	AggregatesCacheSizeMB     int   `toml:"aggregates_cache_size_mb"`
	AggregatesCacheTTLSeconds int   `toml:"aggregates_cache_ttl_seconds"`

	AllowedOrigins []string `toml:"allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}

	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}

	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads the TOML file at path and returns the section for the given env.
func Load(env, path string) (*Config, error) {
	exists, err := pkg.PathExists(path, false)
	if err != nil {
		return nil, fmt.Errorf("check config file %s: %w", path, err)
	}
	if !exists {
		return nil, fmt.Errorf("config file %s: %w", path, ErrConfigNotFound)
	}

	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return t.Get(env)
}

func (c *Config) applyDefaults() {
	if c.StoreDriver == "" {
		c.StoreDriver = StoreDriverPostgres
	}
	if c.DefaultWindowWeeks <= 0 {
		c.DefaultWindowWeeks = defaultWindowWeeks
	}
	if c.ClampNegativeResidual == nil {
		clamp := true
		c.ClampNegativeResidual = &clamp
	}
	if c.AggregatesCacheSizeMB <= 0 {
		c.AggregatesCacheSizeMB = defaultAggregatesCacheSizeMB
	}
	if c.AggregatesCacheTTLSeconds <= 0 {
		c.AggregatesCacheTTLSeconds = defaultAggregatesCacheTTLSec
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = defaultLoginRateLimitAllowedMin
	}
}

// ClampResidual reports whether negative aerobic/easy miles are clamped at zero.
func (c *Config) ClampResidual() bool {
	return c.ClampNegativeResidual == nil || *c.ClampNegativeResidual
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("unknown store driver: %s", c.StoreDriver)
	}
	if c.StoreDriver == StoreDriverMongo && c.MongoURI == "" {
		return fmt.Errorf("store driver %s requires mongo_uri", c.StoreDriver)
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}
