package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the autoscaler.
type Config struct {
	ProjectID  string `koanf:"project_id"`
	Deployment string `koanf:"deployment"`

	// Telemetry settings
	MetricsInterval time.Duration `koanf:"metrics_interval"` // Collection cadence
	SamplesPerHour  int           `koanf:"samples_per_hour"` // Snapshots per hour the forecaster expects

	// Profile selection policy
	CapacitySafetyMargin float64 `koanf:"capacity_safety_margin"` // Requests/minute discount before capacity comparison
	TargetUtilization    float64 `koanf:"target_utilization"`
	UtilizationPenalty   float64 `koanf:"utilization_penalty"` // Score weight for utilization distance

	// Transition behavior
	CoolDownPeriod    time.Duration `koanf:"cooldown_period"`
	SettleDelay       time.Duration `koanf:"settle_delay"` // Wait after provisioning new capacity
	DrainDelay        time.Duration `koanf:"drain_delay"`  // Wait while connections drain
	TransitionTimeout time.Duration `koanf:"transition_timeout"`

	// Control loop cadence
	FastInterval time.Duration `koanf:"fast_interval"` // Queue/response-time loop
	SlowInterval time.Duration `koanf:"slow_interval"` // Cost/profile loop

	// Emergency thresholds (fast loop)
	TargetQueueSize   int     `koanf:"target_queue_size"`
	ScaleUpLatencySec float64 `koanf:"scale_up_latency_sec"`
	ScaleDownLatency  float64 `koanf:"scale_down_latency_sec"`

	// Forecaster settings
	HistoryWindowHours  int    `koanf:"history_window_hours"`
	MinTrainingRows     int    `koanf:"min_training_rows"`
	RequestsPerInstance int    `koanf:"requests_per_instance"` // Hourly capacity of one instance
	TrainSchedule       string `koanf:"train_schedule"`        // Cron expression

	// GPU placement
	GPUTargetUtilization float64 `koanf:"gpu_target_utilization"`
	GPUHistorySize       int     `koanf:"gpu_history_size"`

	// Operation settings
	ExecutorURL string `koanf:"executor_url"` // Scale-action webhook; empty means log-only
	DryRun      bool   `koanf:"dry_run"`
	Log         Log    `koanf:"log"`
}

// Log holds logging configuration.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MetricsInterval:      5 * time.Minute,
		SamplesPerHour:       4, // 15 minute cadence for forecast features
		CapacitySafetyMargin: 0.8,
		TargetUtilization:    0.70,
		UtilizationPenalty:   10,
		CoolDownPeriod:       5 * time.Minute,
		SettleDelay:          60 * time.Second,
		DrainDelay:           30 * time.Second,
		TransitionTimeout:    10 * time.Minute,
		FastInterval:         30 * time.Second,
		SlowInterval:         5 * time.Minute,
		TargetQueueSize:      10,
		ScaleUpLatencySec:    5.0,
		ScaleDownLatency:     2.0,
		HistoryWindowHours:   168, // 1 week
		MinTrainingRows:      48,  // 2 days at hourly-equivalent cadence
		RequestsPerInstance:  100,
		TrainSchedule:        "0 * * * *", // Hourly
		GPUTargetUtilization: 0.8,
		GPUHistorySize:       5,
		DryRun:               false,
		Log:                  Log{Level: "info", Format: "console"},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().Str("path", path).Msg("Loaded configuration")
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.CapacitySafetyMargin <= 0 || c.CapacitySafetyMargin > 1 {
		return fmt.Errorf("capacity_safety_margin must be in (0,1], got %v", c.CapacitySafetyMargin)
	}
	if c.TargetUtilization <= 0 || c.TargetUtilization >= 1 {
		return fmt.Errorf("target_utilization must be in (0,1), got %v", c.TargetUtilization)
	}
	if c.CoolDownPeriod <= 0 {
		return fmt.Errorf("cooldown_period must be positive, got %v", c.CoolDownPeriod)
	}
	if c.FastInterval <= 0 || c.SlowInterval <= 0 {
		return fmt.Errorf("loop intervals must be positive")
	}
	if c.RequestsPerInstance <= 0 {
		return fmt.Errorf("requests_per_instance must be positive, got %d", c.RequestsPerInstance)
	}
	if c.SamplesPerHour <= 0 {
		return fmt.Errorf("samples_per_hour must be positive, got %d", c.SamplesPerHour)
	}
	return nil
}
