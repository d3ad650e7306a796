// Package config loads application configuration from YAML files and
// environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openrecipes/harvester/internal/database"
	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/logger"
)

// Defaults applied when fields are unset.
const (
	DefaultBatchSize     = 50
	DefaultHarvestWindow = 30 * time.Minute
	DefaultBaseDelay     = 1 * time.Second
	DefaultMetricsAddr   = ":9090"
	DefaultRedisAddr     = "localhost:6379"
)

// AppConfig holds process-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"        yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// RedisConfig holds the optional fingerprint cache settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	Addr     string `mapstructure:"addr"     yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
}

// HarvestConfig holds batch execution defaults.
type HarvestConfig struct {
	// BatchSize bounds the number of URLs a new batch takes on.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	// Window bounds how long a batch may run before completing partial.
	Window time.Duration `mapstructure:"window" yaml:"window"`
	// BaseDelay is the retry backoff base delay.
	BaseDelay time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	// MetricsAddr is the listen address for the Prometheus endpoint.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// Config is the full application configuration.
type Config struct {
	App       AppConfig               `mapstructure:"app"       yaml:"app"`
	Logger    logger.Config           `mapstructure:"logger"    yaml:"logger"`
	Database  database.Config         `mapstructure:"database"  yaml:"database"`
	Redis     RedisConfig             `mapstructure:"redis"     yaml:"redis"`
	Harvest   HarvestConfig           `mapstructure:"harvest"   yaml:"harvest"`
	Providers []domain.ProviderConfig `mapstructure:"providers" yaml:"providers"`

	// IngredientMappings maps provider id to a code->canonical-name table
	// served by the static ingredient normalizer.
	IngredientMappings map[string]map[string]string `mapstructure:"ingredient_mappings" yaml:"ingredient_mappings"`
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the HARVESTER_ prefix with
// underscores, e.g. HARVESTER_DATABASE_HOST.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logger.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for internal consistency.
// Provider entries are validated separately when the registry is built.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database name is required")
	}
	if c.Harvest.BatchSize < 0 {
		return errors.New("harvest batch_size must not be negative")
	}
	if c.Harvest.Window <= 0 {
		return errors.New("harvest window must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "harvester")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "harvester")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.db", 0)

	v.SetDefault("harvest.batch_size", DefaultBatchSize)
	v.SetDefault("harvest.window", DefaultHarvestWindow)
	v.SetDefault("harvest.base_delay", DefaultBaseDelay)
	v.SetDefault("harvest.metrics_addr", DefaultMetricsAddr)
}
