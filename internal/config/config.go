package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "HOTSEAT"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Match       MatchConfig       `mapstructure:"match"`
	Store       StoreConfig       `mapstructure:"store"`
	Development DevelopmentConfig `mapstructure:"development"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type MatchConfig struct {
	InitialTime  time.Duration `mapstructure:"initial_time"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Autosave     bool          `mapstructure:"autosave"`
}

// StoreConfig selects where saved matches live. Driver is memory, redis or
// postgres; TTL only applies to redis and zero means no expiry.
type StoreConfig struct {
	Driver      string        `mapstructure:"driver"`
	RedisURL    string        `mapstructure:"redis_url"`
	PostgresURL string        `mapstructure:"postgres_url"`
	TTL         time.Duration `mapstructure:"ttl"`
}

type DevelopmentConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Load reads config.yaml from the given directories (default "." and
// "./config"), then applies HOTSEAT_* environment variables. A missing file is
// not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Enable environment variables
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("match.initial_time", time.Hour)
	v.SetDefault("match.tick_interval", time.Second)
	v.SetDefault("match.autosave", true)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.ttl", 0)
	v.SetDefault("development.debug", false)
	v.SetDefault("development.log_level", "info")
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Match.InitialTime <= 0 {
		return fmt.Errorf("match.initial_time must be positive, got %s", c.Match.InitialTime)
	}
	if c.Match.TickInterval <= 0 {
		return fmt.Errorf("match.tick_interval must be positive, got %s", c.Match.TickInterval)
	}
	return nil
}
