package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Qbit: QbitConfig{
			Primary: EndpointConfig{
				Name:     "primary",
				URL:      "http://localhost:8080",
				Username: "admin",
				Password: "secret",
			},
			QueuePath: "/tmp/queue.json",
		},
		Tasks: TasksConfig{
			QueueCapacity: 100,
			MaxWorkers:    4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid minimal config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "missing primary url",
			mutate: func(cfg *Config) {
				cfg.Qbit.Primary.URL = ""
			},
			wantErr: true,
		},
		{
			name: "missing queue path",
			mutate: func(cfg *Config) {
				cfg.Qbit.QueuePath = ""
			},
			wantErr: true,
		},
		{
			name: "prowlarr enabled without api key",
			mutate: func(cfg *Config) {
				cfg.Prowlarr.Enabled = true
				cfg.Prowlarr.URL = "http://localhost:9696"
			},
			wantErr: true,
		},
		{
			name: "prowlarr placeholder api key",
			mutate: func(cfg *Config) {
				cfg.Prowlarr.Enabled = true
				cfg.Prowlarr.URL = "http://localhost:9696"
				cfg.Prowlarr.APIKey = "your-api-key-here"
			},
			wantErr: true,
		},
		{
			name: "prowlarr disabled skips validation",
			mutate: func(cfg *Config) {
				cfg.Prowlarr.Enabled = false
			},
			wantErr: false,
		},
		{
			name: "shelf enabled without token",
			mutate: func(cfg *Config) {
				cfg.Shelf.Enabled = true
				cfg.Shelf.URL = "http://localhost:13378"
			},
			wantErr: true,
		},
		{
			name: "zero workers",
			mutate: func(cfg *Config) {
				cfg.Tasks.MaxWorkers = 0
			},
			wantErr: true,
		},
		{
			name: "negative delivery rate",
			mutate: func(cfg *Config) {
				cfg.Delivery.RatePerSecond = -1
			},
			wantErr: true,
		},
		{
			name: "trace logging level",
			mutate: func(cfg *Config) {
				cfg.Logging.Level = "trace"
			},
			wantErr: false,
		},
		{
			name: "invalid logging level",
			mutate: func(cfg *Config) {
				cfg.Logging.Level = "verbose"
			},
			wantErr: true,
		},
		{
			name: "invalid logging format",
			mutate: func(cfg *Config) {
				cfg.Logging.Format = "xml"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
qbit:
  primary:
    url: http://localhost:8080
    username: admin
    password: secret
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Qbit.Primary.Name != "primary" {
		t.Errorf("primary name = %q, want default primary", cfg.Qbit.Primary.Name)
	}
	if cfg.Qbit.Category != "audiobooks" {
		t.Errorf("category = %q, want audiobooks", cfg.Qbit.Category)
	}
	if cfg.Qbit.QueuePath == "" {
		t.Errorf("queue path default not applied")
	}
	if cfg.Tasks.QueueCapacity != 100 || cfg.Tasks.MaxWorkers != 4 {
		t.Errorf("task defaults = %+v", cfg.Tasks)
	}
	if cfg.Tasks.RetryDelay != time.Second {
		t.Errorf("retry delay = %s, want 1s", cfg.Tasks.RetryDelay)
	}
	if cfg.Tasks.FlushInterval != 5*time.Minute {
		t.Errorf("flush interval = %s, want 5m", cfg.Tasks.FlushInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
qbit:
  primary:
    url: http://localhost:8080
logging:
  level: shouting
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}
