// Package config loads the settings a litter process starts from.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mrjvadi/litter/broker"
)

// Environment variables that take precedence over the file.
const (
	EnvRedisAddr     = "LITTER_REDIS_ADDR"
	EnvRedisPassword = "LITTER_REDIS_PASSWORD"
	EnvAppName       = "LITTER_APP_NAME"
)

type Config struct {
	Redis        RedisConfig   `yaml:"redis"`
	AppName      string        `yaml:"app_name"`
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Log          LogConfig     `yaml:"log"`
}

// RedisConfig accepts either addr or host and port.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func Default() Config {
	return Config{
		Redis:        RedisConfig{Host: "localhost", Port: 6379},
		Workers:      broker.DefaultMaxJobs,
		PollInterval: broker.DefaultPollInterval,
		Log:          LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		c.Redis.Password = v
	}
	if v, ok := lookup(EnvAppName); ok && v != "" {
		c.AppName = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Redis.Addr == "" {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("redis: addr or host is required"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("redis: port %d out of range", c.Redis.Port))
		}
	} else if _, _, err := net.SplitHostPort(c.Redis.Addr); err != nil {
		errs = append(errs, fmt.Errorf("redis: addr: %w", err))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis: db %d is negative", c.Redis.DB))
	}
	if strings.ContainsFunc(c.AppName, unicode.IsSpace) {
		errs = append(errs, fmt.Errorf("app_name %q contains whitespace", c.AppName))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if err := c.Log.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", broker.ErrConfig, err)
	}
	return nil
}

// Address is addr when set, otherwise host:port.
func (r RedisConfig) Address() string {
	if r.Addr != "" {
		return r.Addr
	}
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

func (r RedisConfig) Credentials() broker.Credentials {
	return broker.Credentials{
		Addr:     r.Address(),
		Username: r.Username,
		Password: r.Password,
		DB:       r.DB,
	}
}

// Options turns the configuration into App options. The logger is passed in
// so callers build it once.
func (c Config) Options(logger *zap.Logger) []broker.Option {
	opts := []broker.Option{
		broker.WithCredentials(c.Redis.Credentials()),
		broker.WithMaxJobs(c.Workers),
		broker.WithPollInterval(c.PollInterval),
		broker.WithLogger(logger),
	}
	if c.AppName != "" {
		opts = append(opts, broker.WithAppName(c.AppName))
	}
	return opts
}

// String renders the configuration with the password masked.
func (c Config) String() string {
	c.Redis.Password = redact(c.Redis.Password)
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}
