// Package config loads monitor settings. Precedence: environment variables >
// YAML file (CONFIG_FILE) > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can use strings like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `yaml:"port"`
	DatabasePath string `yaml:"database_path"`
	LogLevel     string `yaml:"log_level"`

	PollInterval    Duration `yaml:"poll_interval"`
	PollConcurrency int      `yaml:"poll_concurrency"`
	AgentTimeout    Duration `yaml:"agent_timeout"`
	HealthTimeout   Duration `yaml:"health_timeout"`
	StaleThreshold  Duration `yaml:"stale_threshold"`

	RetentionHours   int    `yaml:"metrics_retention_hours"`
	PruneSchedule    string `yaml:"prune_schedule"`
	HistoryMaxPoints int    `yaml:"history_max_points"`
	StateCache       string `yaml:"state_cache"` // "memory" or "store"

	CORSOrigins    []string `yaml:"cors_origins"`
	JWTSecret      string   `yaml:"jwt_secret"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerPort:       8080,
		DatabasePath:     "./conduit_monitor.db",
		LogLevel:         "info",
		PollInterval:     Duration{15 * time.Second},
		PollConcurrency:  8,
		AgentTimeout:     Duration{5 * time.Second},
		HealthTimeout:    Duration{3 * time.Second},
		StaleThreshold:   Duration{60 * time.Second},
		RetentionHours:   720,
		PruneSchedule:    "@every 1h",
		HistoryMaxPoints: 300,
		StateCache:       "memory",
		CORSOrigins:      []string{"http://localhost:3000"},
		RateLimitRPS:     20,
		RateLimitBurst:   40,
	}
}

// Load loads configuration from an optional YAML file named by CONFIG_FILE,
// then applies environment variable overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var err error
	if cfg.ServerPort, err = envInt("PORT", cfg.ServerPort); err != nil {
		return err
	}
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", cfg.PollInterval); err != nil {
		return err
	}
	if cfg.PollConcurrency, err = envInt("POLL_CONCURRENCY", cfg.PollConcurrency); err != nil {
		return err
	}
	if cfg.AgentTimeout, err = envDuration("AGENT_TIMEOUT", cfg.AgentTimeout); err != nil {
		return err
	}
	if cfg.HealthTimeout, err = envDuration("HEALTH_TIMEOUT", cfg.HealthTimeout); err != nil {
		return err
	}
	if cfg.StaleThreshold, err = envDuration("STALE_THRESHOLD", cfg.StaleThreshold); err != nil {
		return err
	}

	if cfg.RetentionHours, err = envInt("METRICS_RETENTION_HOURS", cfg.RetentionHours); err != nil {
		return err
	}
	cfg.PruneSchedule = getEnv("PRUNE_SCHEDULE", cfg.PruneSchedule)
	if cfg.HistoryMaxPoints, err = envInt("HISTORY_MAX_POINTS", cfg.HistoryMaxPoints); err != nil {
		return err
	}
	cfg.StateCache = getEnv("STATE_CACHE", cfg.StateCache)

	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	if v := getEnv("RATE_LIMIT_RPS", ""); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		cfg.RateLimitRPS = rps
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return err
	}
	return nil
}

// Validate checks that the configuration can be used to start the monitor.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("port must be between 1 and 65535 (got %d)", c.ServerPort)
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PollConcurrency < 1 {
		return fmt.Errorf("poll concurrency must be at least 1")
	}
	if c.RetentionHours < 1 {
		return fmt.Errorf("metrics retention must be at least 1 hour")
	}
	if c.StateCache != "memory" && c.StateCache != "store" {
		return fmt.Errorf("state cache must be \"memory\" or \"store\" (got %q)", c.StateCache)
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, fallback Duration) (Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return Duration{d}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
