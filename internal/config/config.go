// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Token          string `yaml:"-"` // Loaded from environment
}

// Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Path        string `yaml:"path"`
	MaxAgeHours int    `yaml:"max_age_hours"`
	// MaintenanceCron schedules the stale-snapshot purge,
	// standard 5-field cron syntax.
	MaintenanceCron string `yaml:"maintenance_cron"`
}

// MaxAge returns the retention window for cached snapshots.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
	} `yaml:"app"`

	API APIConfig `yaml:"api"`

	Cache CacheConfig `yaml:"cache"`

	Notifications struct {
		PollSeconds int `yaml:"poll_seconds"`
	} `yaml:"notifications"`
}

// PollInterval returns the notification poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Notifications.PollSeconds) * time.Second
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.API.Token = os.Getenv("CIVIBOOK_API_TOKEN")

	applyDefaults(&cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.Notifications.PollSeconds == 0 {
		cfg.Notifications.PollSeconds = 60
	}
	if cfg.Cache.MaxAgeHours == 0 {
		cfg.Cache.MaxAgeHours = 24 * 7
	}
	if cfg.Cache.MaintenanceCron == "" {
		cfg.Cache.MaintenanceCron = "0 3 * * *"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url is required")
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api timeout_seconds must not be negative")
	}
	if c.Notifications.PollSeconds < 0 {
		return fmt.Errorf("notifications poll_seconds must not be negative")
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache path is required")
	}
	if _, err := cron.ParseStandard(c.Cache.MaintenanceCron); err != nil {
		return fmt.Errorf("invalid cache maintenance_cron %q: %w", c.Cache.MaintenanceCron, err)
	}
	return nil
}
