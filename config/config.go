package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "shelfarr"))
			v.AddConfigPath(filepath.Join(home, ".shelfarr"))
		}

		// Check /etc
		v.AddConfigPath("/etc/shelfarr/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// qBittorrent defaults
	v.SetDefault("qbit.primary.name", "primary")
	v.SetDefault("qbit.secondary.name", "secondary")
	v.SetDefault("qbit.category", "audiobooks")
	v.SetDefault("qbit.queue_path", defaultQueuePath())

	// Task processor defaults
	v.SetDefault("tasks.queue_capacity", 100)
	v.SetDefault("tasks.max_workers", 4)
	v.SetDefault("tasks.max_retries", 3)
	v.SetDefault("tasks.retry_delay", "1s")
	v.SetDefault("tasks.dependency_timeout", "5m")
	v.SetDefault("tasks.flush_interval", "5m")
	v.SetDefault("tasks.scan_interval", "15m")

	// Delivery defaults: unlimited unless configured
	v.SetDefault("delivery.rate_per_second", 0)
	v.SetDefault("delivery.burst", 1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

func defaultQueuePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".shelfarr", "queue.json")
	}
	return "queue.json"
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if !cfg.Qbit.Primary.Configured() {
		return fmt.Errorf("qbit.primary.url is required")
	}

	if cfg.Qbit.QueuePath == "" {
		return fmt.Errorf("qbit.queue_path is required")
	}

	if cfg.Prowlarr.Enabled {
		if cfg.Prowlarr.URL == "" {
			return fmt.Errorf("prowlarr.url is required when prowlarr is enabled")
		}
		if cfg.Prowlarr.APIKey == "" || cfg.Prowlarr.APIKey == "your-api-key-here" {
			return fmt.Errorf("prowlarr.api_key must be set to a valid API key")
		}
	}

	if cfg.Shelf.Enabled {
		if cfg.Shelf.URL == "" {
			return fmt.Errorf("shelf.url is required when shelf is enabled")
		}
		if cfg.Shelf.Token == "" {
			return fmt.Errorf("shelf.token must be set to a valid API token")
		}
	}

	if cfg.Tasks.QueueCapacity <= 0 {
		return fmt.Errorf("tasks.queue_capacity must be positive")
	}
	if cfg.Tasks.MaxWorkers <= 0 {
		return fmt.Errorf("tasks.max_workers must be positive")
	}
	if cfg.Delivery.RatePerSecond < 0 {
		return fmt.Errorf("delivery.rate_per_second must not be negative")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
