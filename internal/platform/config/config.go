// Package config loads process configuration from the environment, optionally
// seeded from a .env file. Values are immutable after Load returns.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     Server     `envPrefix:"SERVER_"`
	Packet     Packet     `envPrefix:"PACKET_"`
	Registry   Registry   `envPrefix:"REGISTRY_"`
	Credential Credential `envPrefix:"CREDENTIAL_"`
	Redis      Redis      `envPrefix:"REDIS_"`
	Invite     Invite     `envPrefix:"INVITE_"`
	LogLevel   string     `env:"LOG_LEVEL" envDefault:"info"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Packet is the carrier packet service: token endpoint and invitations.
type Packet struct {
	BaseURL  string        `env:"BASE_URL" envDefault:"https://api.mycarrierpackets.com"`
	Username string        `env:"USERNAME,required"`
	Password string        `env:"PASSWORD,required"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Registry is the carrier lookup web service.
type Registry struct {
	BaseURL         string        `env:"BASE_URL" envDefault:"https://www.saferwatch.com"`
	ServiceKey      string        `env:"SERVICE_KEY,required"`
	CustomerKey     string        `env:"CUSTOMER_KEY,required"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"15s"`
	RatePerSecond   float64       `env:"RATE_PER_SECOND" envDefault:"2"`
	Burst           int           `env:"BURST" envDefault:"1"`
	BreakerFailures int           `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// Credential selects where the access credential is cached.
type Credential struct {
	Driver         string        `env:"STORE" envDefault:"file"`
	FilePath       string        `env:"FILE" envDefault:"token_data.json"`
	RedisKey       string        `env:"REDIS_KEY" envDefault:"haulgate:credential"`
	RefreshTimeout time.Duration `env:"REFRESH_TIMEOUT" envDefault:"30s"`
}

// Redis is only dialed when the redis credential store is selected.
type Redis struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"0"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

type Invite struct {
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Load reads the given .env files (".env" when none are named) into the
// process environment without overriding variables already set, then parses
// the environment. Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return parse(env.Options{})
}

// FromMap parses configuration from an explicit variable set instead of the
// process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.Credential.Driver {
	case "file", "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when CREDENTIAL_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_STORE must be file, redis or memory, got %q", c.Credential.Driver))
	}
	if c.Registry.RatePerSecond < 0 {
		errs = append(errs, errors.New("REGISTRY_RATE_PER_SECOND cannot be negative"))
	}
	if c.Registry.Burst < 1 {
		errs = append(errs, errors.New("REGISTRY_BURST must be at least 1"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
}

// IsProduction reports whether the server runs in production.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}
