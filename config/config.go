// Package config loads flowgraph server settings.
//
// Precedence is defaults, then the YAML file, then FLOWGRAPH_* environment
// variables:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("flowgraph.yaml").
//	    Load()
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/meikuraledutech/flowgraph/cache"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" env:"SERVER"`
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
	Redis    RedisConfig    `yaml:"redis" env:"REDIS"`
	Log      LogConfig      `yaml:"log" env:"LOG"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gte=0"`
	// SessionTTL of zero keeps editor sessions until they are deleted.
	SessionTTL    time.Duration `yaml:"session_ttl" env:"SESSION_TTL" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL" validate:"gt=0"`
}

// DatabaseConfig selects the store. An empty URL uses the in-memory store.
type DatabaseConfig struct {
	URL      string `yaml:"url" env:"URL"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS" validate:"gte=0"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Addr     string        `yaml:"addr" env:"ADDR" validate:"required_if=Enabled true"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB" validate:"gte=0"`
	PoolSize int           `yaml:"pool_size" env:"POOL_SIZE" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" env:"TTL" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionTTL:      time.Hour,
			SweepInterval:   time.Minute,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			TTL:      5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CacheConfig converts the redis section for cache.New.
func (r RedisConfig) CacheConfig() cache.Config {
	c := cache.DefaultConfig()
	c.Addr = r.Addr
	c.Password = r.Password
	c.DB = r.DB
	c.PoolSize = r.PoolSize
	c.TTL = r.TTL
	return c
}
