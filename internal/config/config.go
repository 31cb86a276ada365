// Package config loads the application configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// configPathEnv overrides the config file location.
const configPathEnv = "MDBIN_CONFIG"

// defaultConfigPath is used when neither a flag nor the environment names one.
const defaultConfigPath = "config.yaml"

// AppConfig is the full application configuration.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Quota      QuotaConfig      `yaml:"quota"`
	Publish    PublishConfig    `yaml:"publish"`
	Moderation ModerationConfig `yaml:"moderation"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures the primary datastore.
type DatabaseConfig struct {
	// DSN accepts a postgres URL or a sqlite file path.
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the optional shared rate limit backend. An empty
// Addr selects the in-process limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QuotaConfig configures the per-identity operation budget.
type QuotaConfig struct {
	DailyLimit       int64 `yaml:"daily-limit"`
	ResetWindowHours int   `yaml:"reset-window-hours"`
}

// PublishConfig configures the publish pipeline.
type PublishConfig struct {
	MaxPayloadBytes    int `yaml:"max-payload-bytes"`
	RateLimitPerMinute int `yaml:"rate-limit-per-minute"`
}

// ModerationConfig configures the external moderation collaborator. An empty
// Endpoint selects the built-in pattern moderator only.
type ModerationConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api-key"`
	TimeoutSeconds int    `yaml:"timeout-seconds"`
}

// LogConfig configures logging output and rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// ResolveConfigPath picks the config file location: the explicit path wins,
// then the MDBIN_CONFIG environment variable, then the default.
func ResolveConfigPath(explicit string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if fromEnv := strings.TrimSpace(os.Getenv(configPathEnv)); fromEnv != "" {
		return fromEnv
	}
	return defaultConfigPath
}

// Load reads the configuration file at path. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*AppConfig, error) {
	cfg := defaults()

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, errRead)
	}

	if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, errUnmarshal)
	}

	cfg.normalize()
	return cfg, nil
}

// ModerationTimeout returns the configured moderation timeout.
func (c ModerationConfig) ModerationTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResetWindow returns the configured quota window length.
func (c QuotaConfig) ResetWindow() time.Duration {
	if c.ResetWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ResetWindowHours) * time.Hour
}

func defaults() *AppConfig {
	return &AppConfig{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: "mdbin.db"},
		Quota: QuotaConfig{
			DailyLimit:       50,
			ResetWindowHours: 24,
		},
		Publish: PublishConfig{
			MaxPayloadBytes:    256 << 10,
			RateLimitPerMinute: 10,
		},
		Moderation: ModerationConfig{TimeoutSeconds: 10},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// normalize fills back the defaults for fields the file zeroed out.
func (c *AppConfig) normalize() {
	base := defaults()
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = base.Server.Addr
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		c.Database.DSN = base.Database.DSN
	}
	if c.Quota.DailyLimit <= 0 {
		c.Quota.DailyLimit = base.Quota.DailyLimit
	}
	if c.Quota.ResetWindowHours <= 0 {
		c.Quota.ResetWindowHours = base.Quota.ResetWindowHours
	}
	if c.Publish.MaxPayloadBytes <= 0 {
		c.Publish.MaxPayloadBytes = base.Publish.MaxPayloadBytes
	}
	if c.Publish.RateLimitPerMinute <= 0 {
		c.Publish.RateLimitPerMinute = base.Publish.RateLimitPerMinute
	}
	if c.Moderation.TimeoutSeconds <= 0 {
		c.Moderation.TimeoutSeconds = base.Moderation.TimeoutSeconds
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = base.Log.Level
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = base.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = base.Log.MaxBackups
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = base.Log.MaxAgeDays
	}
}
