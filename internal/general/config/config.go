package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration for the realtime service and its client.
type Config struct {
	Realtime Realtime `yaml:"realtime"`
	JWT      JWT      `yaml:"jwt"`
	Client   Client   `yaml:"client"`
}

// Realtime configures the hub process.
type Realtime struct {
	Port              int `yaml:"port"`
	StaleAfterSeconds int `yaml:"stale_after_seconds"` // location record staleness threshold
	ReapEverySeconds  int `yaml:"reap_every_seconds"`  // reaper period
	PingSeconds       int `yaml:"ping_seconds"`        // transport keepalive ping period
}

// JWT configures the bearer-token guard on the admin HTTP surface.
type JWT struct {
	SecretKey string `yaml:"secret_key"`
}

// Client configures the dialing transport client.
type Client struct {
	EndpointURL string `yaml:"endpoint_url"`
}

// StaleAfter returns the staleness threshold as a duration.
func (r Realtime) StaleAfter() time.Duration {
	return time.Duration(r.StaleAfterSeconds) * time.Second
}

// ReapEvery returns the reaper period as a duration.
func (r Realtime) ReapEvery() time.Duration {
	return time.Duration(r.ReapEverySeconds) * time.Second
}

// PingInterval returns the keepalive ping period as a duration.
func (r Realtime) PingInterval() time.Duration {
	return time.Duration(r.PingSeconds) * time.Second
}

// LoadFromFile reads the YAML config, applies environment overrides, and
// validates required fields. A .env file next to the process is honored when
// present (development convenience; real deployments set env vars directly).
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a Config pre-filled with the documented defaults.
func defaults() *Config {
	return &Config{
		Realtime: Realtime{
			Port:              9092,
			StaleAfterSeconds: 300,
			ReapEverySeconds:  60,
			PingSeconds:       30,
		},
	}
}

// applyEnvOverrides lets the environment win over the file for the values
// that are deployment-specific.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("REALTIME_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Realtime.Port = p
		}
	}
	if v := strings.TrimSpace(os.Getenv("REALTIME_ENDPOINT_URL")); v != "" {
		cfg.Client.EndpointURL = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_SECRET_KEY")); v != "" {
		cfg.JWT.SecretKey = v
	}
}

// validate checks required fields and value ranges.
func (cfg *Config) validate() error {
	if cfg.Realtime.Port <= 0 || cfg.Realtime.Port > 65535 {
		return fmt.Errorf("realtime.port must be in 1..65535, got %d", cfg.Realtime.Port)
	}
	if cfg.Realtime.StaleAfterSeconds <= 0 {
		return fmt.Errorf("realtime.stale_after_seconds must be positive, got %d", cfg.Realtime.StaleAfterSeconds)
	}
	if cfg.Realtime.ReapEverySeconds <= 0 {
		return fmt.Errorf("realtime.reap_every_seconds must be positive, got %d", cfg.Realtime.ReapEverySeconds)
	}
	if cfg.Realtime.PingSeconds <= 0 {
		return fmt.Errorf("realtime.ping_seconds must be positive, got %d", cfg.Realtime.PingSeconds)
	}
	if strings.TrimSpace(cfg.JWT.SecretKey) == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}
	return nil
}
