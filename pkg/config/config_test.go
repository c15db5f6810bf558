package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.TargetUtilization != 0.70 {
		t.Errorf("TargetUtilization = %v, want 0.70", cfg.TargetUtilization)
	}
	if cfg.CoolDownPeriod != 5*time.Minute {
		t.Errorf("CoolDownPeriod = %v, want 5m", cfg.CoolDownPeriod)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
deployment: chat-fleet
cooldown_period: 10m
target_queue_size: 20
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Deployment != "chat-fleet" {
		t.Errorf("Deployment = %s, want chat-fleet", cfg.Deployment)
	}
	if cfg.CoolDownPeriod != 10*time.Minute {
		t.Errorf("CoolDownPeriod = %v, want 10m", cfg.CoolDownPeriod)
	}
	if cfg.TargetQueueSize != 20 {
		t.Errorf("TargetQueueSize = %d, want 20", cfg.TargetQueueSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.TargetUtilization != 0.70 {
		t.Errorf("TargetUtilization = %v, want default 0.70", cfg.TargetUtilization)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() = nil error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults are valid", func(c *Config) {}, true},
		{"zero safety margin", func(c *Config) { c.CapacitySafetyMargin = 0 }, false},
		{"margin above one", func(c *Config) { c.CapacitySafetyMargin = 1.5 }, false},
		{"target utilization at one", func(c *Config) { c.TargetUtilization = 1.0 }, false},
		{"negative cooldown", func(c *Config) { c.CoolDownPeriod = -time.Second }, false},
		{"zero fast interval", func(c *Config) { c.FastInterval = 0 }, false},
		{"zero instance capacity", func(c *Config) { c.RequestsPerInstance = 0 }, false},
		{"zero samples per hour", func(c *Config) { c.SamplesPerHour = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
