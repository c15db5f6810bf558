package daemon

import (
	"context"
	"time"

	"github.com/agentfleet/agent-autoscaler/pkg/config"
	"github.com/agentfleet/agent-autoscaler/pkg/controller"
)

// CycleRunner runs the periodic control cycles. The fast cycle watches
// queue pressure, the slow cycle drives cost-based profile selection, and
// the telemetry cycle feeds the forecaster and GPU history.
type CycleRunner interface {
	RunFastCycle(ctx context.Context) error
	RunSlowCycle(ctx context.Context) error
	RunTelemetryCycle(ctx context.Context) error
}

// StateReader exposes controller state for the HTTP surface.
type StateReader interface {
	State() controller.State
}

// HTTPServerInterface defines the interface for the HTTP health/metrics server.
type HTTPServerInterface interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// MetricsReporter defines the interface for metrics reporting.
type MetricsReporter interface {
	RecordCycleDuration(loop string, duration time.Duration)
	RecordCycleCompletion(loop string)
	RecordError(errorType string)
	RecordTransition(result string)
	RecordProfile(profile config.ResourceProfile)
	RecordSnapshot(cpu, memory, gpuUtil float64, queueDepth int)
	RecordPrediction(instances int)
}

// SignalHandler defines the interface for handling OS signals.
type SignalHandler interface {
	WaitForShutdown() <-chan struct{}
}

// Config provides read-only access to daemon configuration.
type Config interface {
	GetFastInterval() time.Duration
	GetSlowInterval() time.Duration
	GetTelemetryInterval() time.Duration
	GetTrainSchedule() string
	GetHTTPPort() int
	IsMetricsEnabled() bool
	IsDryRun() bool
	GetDeployment() string
}
