package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8011 || cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "/data/plans.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Sampling.Timeout != 45*time.Second || cfg.Sampling.MaxAttempts != 2 {
		t.Fatalf("unexpected sampling defaults: %+v", cfg.Sampling)
	}
	if cfg.Plans.DurationDays != 28 || cfg.Nutrition.RetentionDays != 90 || cfg.Nutrition.RetentionSchedule != "@daily" {
		t.Fatalf("unexpected plan defaults: %+v %+v", cfg.Plans, cfg.Nutrition)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("unexpected host %q", cfg.Server.Host)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9000
database:
  driver: postgres
  dsn: postgres://plans@localhost/plans?sslmode=disable
sampling:
  timeout: 10s
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("OPENROUTER_MODEL", "openai/gpt-4o")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("env should override file, got port %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" || cfg.Sampling.Timeout != 10*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Sampling.Model != "openai/gpt-4o" {
		t.Fatalf("legacy model variable not honoured, got %q", cfg.Sampling.Model)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Host: "0.0.0.0", Port: 8011},
			Database: DatabaseConfig{Driver: "sqlite", DSN: "plans.db"},
			Sampling: SamplingConfig{ProxyURL: "http://proxy", Timeout: time.Second, MaxAttempts: 2},
			Plans:    PlansConfig{DurationDays: 28},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero timeout", func(c *Config) { c.Sampling.Timeout = 0 }},
		{"zero attempts", func(c *Config) { c.Sampling.MaxAttempts = 0 }},
		{"more than one retry", func(c *Config) { c.Sampling.MaxAttempts = 3 }},
		{"zero duration", func(c *Config) { c.Plans.DurationDays = 0 }},
		{"negative retention", func(c *Config) { c.Nutrition.RetentionDays = -1 }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tc := range cases {
		cfg := valid()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
