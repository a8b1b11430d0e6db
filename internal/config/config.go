package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses yaml duration strings like "15m" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Secret    SecretConfig    `yaml:"secret"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Apply     ApplyConfig     `yaml:"apply"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type SecretConfig struct {
	// Key is the hex-encoded 32-byte sealing key for credentials at rest.
	Key string `yaml:"key"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type SchedulerConfig struct {
	SyncSchedule         string   `yaml:"sync_schedule"`
	DailyDigestSchedule  string   `yaml:"daily_digest_schedule"`
	WeeklyDigestSchedule string   `yaml:"weekly_digest_schedule"`
	MaxConcurrentRuns    int64    `yaml:"max_concurrent_runs"`
	LeaseTTL             Duration `yaml:"lease_ttl"`
}

type ReconcileConfig struct {
	AutoApplyThreshold float64  `yaml:"auto_apply_threshold"`
	ProposeThreshold   float64  `yaml:"propose_threshold"`
	NewWorkThreshold   float64  `yaml:"new_work_threshold"`
	BatchLimit         int      `yaml:"batch_limit"`
	MaxCandidates      int      `yaml:"max_candidates"`
	GroupWindow        Duration `yaml:"group_window"`
}

type ApplyConfig struct {
	MaxAttempts uint `yaml:"max_attempts"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "loom.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-5",
		},
		Scheduler: SchedulerConfig{
			SyncSchedule:         "@hourly",
			DailyDigestSchedule:  "0 9 * * *",
			WeeklyDigestSchedule: "0 9 * * MON",
			MaxConcurrentRuns:    4,
			LeaseTTL:             Duration(10 * time.Minute),
		},
		Reconcile: ReconcileConfig{
			AutoApplyThreshold: 0.8,
			ProposeThreshold:   0.5,
			NewWorkThreshold:   0.7,
			BatchLimit:         200,
			MaxCandidates:      25,
			GroupWindow:        Duration(15 * time.Minute),
		},
		Apply: ApplyConfig{
			MaxAttempts: 3,
		},
	}

	if path := os.Getenv("LOOM_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("LOOM_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("LOOM_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOOM_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("LOOM_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("LOOM_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if key := os.Getenv("LOOM_SECRET_KEY"); key != "" {
		cfg.Secret.Key = key
	}
	if apiKey := os.Getenv("LOOM_ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.Anthropic.APIKey = apiKey
	}
	if model := os.Getenv("LOOM_ANTHROPIC_MODEL"); model != "" {
		cfg.Anthropic.Model = model
	}

	if cfg.Secret.Key == "" {
		return Config{}, fmt.Errorf("secret key is required (LOOM_SECRET_KEY or secret.key)")
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
