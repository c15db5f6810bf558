package daemon

import (
	"time"

	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

// DaemonConfig holds daemon-specific configuration.
type DaemonConfig struct {
	HTTPPort      int  // Port for health checks and metrics
	EnableMetrics bool // Whether to enable Prometheus metrics
}

// daemonConfig implements the Config interface, giving the loops immutable
// access to the settings they need.
type daemonConfig struct {
	fastInterval      time.Duration
	slowInterval      time.Duration
	telemetryInterval time.Duration
	trainSchedule     string
	httpPort          int
	metricsEnabled    bool
	dryRun            bool
	deployment        string
}

// NewDaemonConfig creates a new daemon configuration wrapper.
func NewDaemonConfig(cfg *config.Config, daemonCfg *DaemonConfig) Config {
	return &daemonConfig{
		fastInterval:      cfg.FastInterval,
		slowInterval:      cfg.SlowInterval,
		telemetryInterval: time.Hour / time.Duration(cfg.SamplesPerHour),
		trainSchedule:     cfg.TrainSchedule,
		httpPort:          daemonCfg.HTTPPort,
		metricsEnabled:    daemonCfg.EnableMetrics,
		dryRun:            cfg.DryRun,
		deployment:        cfg.Deployment,
	}
}

func (c *daemonConfig) GetFastInterval() time.Duration      { return c.fastInterval }
func (c *daemonConfig) GetSlowInterval() time.Duration      { return c.slowInterval }
func (c *daemonConfig) GetTelemetryInterval() time.Duration { return c.telemetryInterval }
func (c *daemonConfig) GetTrainSchedule() string            { return c.trainSchedule }
func (c *daemonConfig) GetHTTPPort() int                    { return c.httpPort }
func (c *daemonConfig) IsMetricsEnabled() bool              { return c.metricsEnabled }
func (c *daemonConfig) IsDryRun() bool                      { return c.dryRun }
func (c *daemonConfig) GetDeployment() string               { return c.deployment }

// validateConfig validates daemon configuration.
func validateConfig(cfg *config.Config, daemonCfg *DaemonConfig) error {
	if cfg == nil || daemonCfg == nil {
		return NewDaemonError("validate", "config", ErrInvalidConfig)
	}
	if cfg.Deployment == "" {
		return NewDaemonError("validate", "config", ErrInvalidConfig)
	}
	if daemonCfg.HTTPPort != 0 && (daemonCfg.HTTPPort < 1 || daemonCfg.HTTPPort > 65535) {
		return NewDaemonError("validate", "config", ErrInvalidConfig)
	}
	return cfg.Validate()
}
