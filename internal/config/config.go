// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the plan generator.
// Values come from config.yaml, a .env file and environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sampling  SamplingConfig  `mapstructure:"sampling"`
	Plans     PlansConfig     `mapstructure:"plans"`
	Nutrition NutritionConfig `mapstructure:"nutrition"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SamplingConfig points at the MCP proxy that fronts the LLM gateway.
type SamplingConfig struct {
	ProxyURL    string        `mapstructure:"proxy_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
}

type PlansConfig struct {
	DurationDays int `mapstructure:"duration_days"`
}

// NutritionConfig controls the purge of old nutrition plans. RetentionDays 0
// keeps everything.
type NutritionConfig struct {
	RetentionDays     int    `mapstructure:"retention_days"`
	RetentionSchedule string `mapstructure:"retention_schedule"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads config.yaml from path when present. Environment variables win
// over the file, e.g. server.port -> SERVER_PORT.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Names the proxy deployment already exports.
	_ = v.BindEnv("sampling.proxy_url", "SAMPLING_PROXY_URL", "MCP_PROXY_URL")
	_ = v.BindEnv("sampling.api_key", "SAMPLING_API_KEY", "MCP_PROXY_API_KEY")
	_ = v.BindEnv("sampling.model", "SAMPLING_MODEL", "OPENROUTER_MODEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8011)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "/data/plans.db")
	v.SetDefault("sampling.proxy_url", "http://mcp-compose-http-proxy:9876")
	v.SetDefault("sampling.api_key", "")
	v.SetDefault("sampling.model", "anthropic/claude-3.5-sonnet")
	v.SetDefault("sampling.timeout", "45s")
	v.SetDefault("sampling.max_attempts", 2)
	v.SetDefault("sampling.max_tokens", 4000)
	v.SetDefault("sampling.temperature", 0.4)
	v.SetDefault("plans.duration_days", 28)
	v.SetDefault("nutrition.retention_days", 90)
	v.SetDefault("nutrition.retention_schedule", "@daily")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q: want sqlite or postgres", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Sampling.ProxyURL == "" {
		return fmt.Errorf("sampling.proxy_url is required")
	}
	if c.Sampling.Timeout <= 0 {
		return fmt.Errorf("sampling.timeout must be positive, got %s", c.Sampling.Timeout)
	}
	if c.Sampling.MaxAttempts < 1 || c.Sampling.MaxAttempts > 2 {
		return fmt.Errorf("sampling.max_attempts must be 1 or 2, got %d", c.Sampling.MaxAttempts)
	}
	if c.Plans.DurationDays <= 0 {
		return fmt.Errorf("plans.duration_days must be positive, got %d", c.Plans.DurationDays)
	}
	if c.Nutrition.RetentionDays < 0 {
		return fmt.Errorf("nutrition.retention_days must not be negative, got %d", c.Nutrition.RetentionDays)
	}
	return nil
}
