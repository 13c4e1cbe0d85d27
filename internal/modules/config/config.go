package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"trade_engine/internal/idempotency"
	"trade_engine/internal/notify"
	"trade_engine/internal/signal"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"

	defaultConfigFile = "configs/values_local.yaml"
	envPrefix         = "TRADE_ENGINE"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Service struct {
		Name            string        `mapstructure:"name"`
		Host            string        `mapstructure:"host"`
		PublicPort      int           `mapstructure:"public_port"`
		AdminPort       int           `mapstructure:"admin_port"`
		AllowedOrigins  []string      `mapstructure:"allowed_origins"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"service"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Storage struct {
		Driver   string `mapstructure:"driver"`
		DSN      string `mapstructure:"db_dsn"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"storage"`

	Signal      signal.Config      `mapstructure:"signal"`
	Idempotency idempotency.Config `mapstructure:"idempotency"`

	Notify struct {
		notify.Config `mapstructure:",squash"`
		Telegram      notify.TelegramConfig `mapstructure:"telegram"`
	} `mapstructure:"notify"`

	Tracing struct {
		Enabled    bool    `mapstructure:"enabled"`
		Host       string  `mapstructure:"host"`
		Port       int     `mapstructure:"port"`
		SampleRate float64 `mapstructure:"sample_rate"`
	} `mapstructure:"tracing"`

	License struct {
		Enforce bool `mapstructure:"enforce"`
	} `mapstructure:"license"`

	// SeedFile is an optional YAML file of user configs and licenses
	// applied at startup.
	SeedFile string `mapstructure:"seed_file"`
}

// NewConfig reads the YAML file named by CONFIG_FILE, then applies
// TRADE_ENGINE_* environment overrides (service.public_port is
// TRADE_ENGINE_SERVICE_PUBLIC_PORT).
func NewConfig() (*Config, error) {
	_ = godotenv.Load()
	return Load(getenvDefault(configFilePathENV, defaultConfigFile))
}

// Load reads path, which may be missing, on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer func() {
				_ = f.Close()
			}()
			if err := v.ReadConfig(f); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "open config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Notify.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		cfg.Storage.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	sig := signal.DefaultConfig()

	v.SetDefault("service.name", "trade-engine")
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.public_port", 8000)
	v.SetDefault("service.admin_port", 8080)
	v.SetDefault("service.allowed_origins", []string{})
	v.SetDefault("service.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")

	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.db_dsn", "")
	v.SetDefault("storage.max_conns", 10)

	v.SetDefault("signal.window_size", sig.WindowSize)
	v.SetDefault("signal.trend_threshold", sig.TrendThreshold)
	v.SetDefault("signal.volatility_threshold", sig.VolatilityThreshold)
	v.SetDefault("signal.trend_weight", sig.TrendWeight)
	v.SetDefault("signal.base_confidence", sig.BaseConfidence)
	v.SetDefault("signal.spike_confidence", sig.SpikeConfidence)

	v.SetDefault("idempotency.ttl", "0s")
	v.SetDefault("idempotency.purge_interval", "1h")

	v.SetDefault("notify.queue_size", 1024)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.telegram.token", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("license.enforce", false)
	v.SetDefault("seed_file", "")
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.db_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Service.PublicPort <= 0 || c.Service.AdminPort <= 0 {
		return fmt.Errorf("service ports must be positive")
	}
	if c.Service.PublicPort == c.Service.AdminPort {
		return fmt.Errorf("service.public_port and service.admin_port must differ")
	}
	if c.Idempotency.TTL < 0 {
		return fmt.Errorf("idempotency.ttl must not be negative")
	}
	return nil
}

// PublicAddr is the listen address of the API server.
func (c *Config) PublicAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.PublicPort)
}

// AdminAddr is the listen address of the health and metrics server.
func (c *Config) AdminAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.AdminPort)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
