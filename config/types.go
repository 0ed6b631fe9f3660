package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Qbit     QbitConfig     `mapstructure:"qbit"`
	Prowlarr ProwlarrConfig `mapstructure:"prowlarr"`
	Shelf    ShelfConfig    `mapstructure:"shelf"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// QbitConfig holds both qBittorrent instances plus the durable queue
// location and VPN diagnostics.
type QbitConfig struct {
	Primary     EndpointConfig `mapstructure:"primary"`
	Secondary   EndpointConfig `mapstructure:"secondary"`
	Category    string         `mapstructure:"category"`
	QueuePath   string         `mapstructure:"queue_path"`
	VPNCheckURL string         `mapstructure:"vpn_check_url"`
}

// EndpointConfig holds one qBittorrent instance's connection details.
type EndpointConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Configured reports whether the endpoint has enough detail to dial.
func (e EndpointConfig) Configured() bool {
	return e.URL != ""
}

// ProwlarrConfig holds Prowlarr API connection details and search scoping.
type ProwlarrConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Categories []int  `mapstructure:"categories"`
}

// ShelfConfig holds AudiobookShelf API connection details.
type ShelfConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	URL       string `mapstructure:"url"`
	Token     string `mapstructure:"token"`
	LibraryID string `mapstructure:"library_id"`
}

// TasksConfig tunes the background task processor.
type TasksConfig struct {
	QueueCapacity     int           `mapstructure:"queue_capacity"`
	MaxWorkers        int           `mapstructure:"max_workers"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	DependencyTimeout time.Duration `mapstructure:"dependency_timeout"`
	FlushInterval     time.Duration `mapstructure:"flush_interval"`
	ScanInterval      time.Duration `mapstructure:"scan_interval"`
}

// DeliveryConfig bounds how fast submissions hit the torrent clients.
type DeliveryConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
