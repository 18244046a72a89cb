package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "30m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds service configuration. Values come from an optional YAML
// file with environment variable overrides on top.
type Config struct {
	Server struct {
		Addr            string   `yaml:"addr"`
		ReadTimeout     Duration `yaml:"read_timeout"`
		WriteTimeout    Duration `yaml:"write_timeout"`
		IdleTimeout     Duration `yaml:"idle_timeout"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Auth struct {
		AccessSecret  string   `yaml:"access_secret"`
		RefreshSecret string   `yaml:"refresh_secret"`
		Issuer        string   `yaml:"issuer"`
		AccessTTL     Duration `yaml:"access_ttl"`
		RefreshTTL    Duration `yaml:"refresh_ttl"`
	} `yaml:"auth"`

	RateLimit struct {
		PerSecond int `yaml:"per_second"`
		Burst     int `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Default returns the baseline configuration before file and env layering.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = Duration(15 * time.Second)
	cfg.Server.WriteTimeout = Duration(15 * time.Second)
	cfg.Server.IdleTimeout = Duration(60 * time.Second)
	cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	cfg.Auth.Issuer = "workstay"
	cfg.Auth.AccessTTL = Duration(30 * time.Minute)
	cfg.Auth.RefreshTTL = Duration(24 * time.Hour)
	cfg.RateLimit.PerSecond = 20
	cfg.RateLimit.Burst = 40
	return cfg
}

// Load reads configuration: defaults, then the YAML file at path (if any),
// then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "WORKSTAY_ADDR")
	setString(&c.Database.DSN, "WORKSTAY_PG_DSN")
	setString(&c.Auth.AccessSecret, "WORKSTAY_ACCESS_SECRET")
	setString(&c.Auth.RefreshSecret, "WORKSTAY_REFRESH_SECRET")
	setString(&c.Auth.Issuer, "WORKSTAY_ISSUER")
	setDuration(&c.Auth.AccessTTL, "WORKSTAY_ACCESS_TTL")
	setDuration(&c.Auth.RefreshTTL, "WORKSTAY_REFRESH_TTL")
	setInt(&c.RateLimit.PerSecond, "WORKSTAY_RATE_PER_SECOND")
	setInt(&c.RateLimit.Burst, "WORKSTAY_RATE_BURST")
}

// Validate rejects configurations the service must not start with. Missing
// or shared signing secrets are fatal: the process refuses traffic rather
// than issuing unverifiable tokens.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.AccessSecret) == "" {
		return errors.New("config: auth.access_secret is required")
	}
	if strings.TrimSpace(c.Auth.RefreshSecret) == "" {
		return errors.New("config: auth.refresh_secret is required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("config: rate limit values must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if parsed, err := time.ParseDuration(v); err == nil {
		*dst = Duration(parsed)
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if parsed, err := strconv.Atoi(v); err == nil {
		*dst = parsed
	}
}
