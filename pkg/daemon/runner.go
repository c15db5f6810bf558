package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
	"github.com/agentfleet/agent-autoscaler/pkg/controller"
	"github.com/agentfleet/agent-autoscaler/pkg/costs"
	"github.com/agentfleet/agent-autoscaler/pkg/forecast"
	"github.com/agentfleet/agent-autoscaler/pkg/gpu"
)

// scalingRunner implements CycleRunner over the scaling components.
type scalingRunner struct {
	source     collector.Source
	ctrl       *controller.Controller
	forecaster *forecast.Forecaster
	gpus       *gpu.Manager
	ledger     *costs.Ledger
	metrics    MetricsReporter
}

// NewScalingRunner creates a cycle runner with dependencies injected.
func NewScalingRunner(source collector.Source, ctrl *controller.Controller, forecaster *forecast.Forecaster, gpus *gpu.Manager, ledger *costs.Ledger, metrics MetricsReporter) CycleRunner {
	return &scalingRunner{
		source:     source,
		ctrl:       ctrl,
		forecaster: forecaster,
		gpus:       gpus,
		ledger:     ledger,
		metrics:    metrics,
	}
}

// RunFastCycle checks queue depth and response time against the emergency
// thresholds and triggers a one-step transition when they are breached.
func (r *scalingRunner) RunFastCycle(ctx context.Context) error {
	defer r.observeCycle("fast", time.Now())

	snap, err := r.source.Collect(ctx)
	if err != nil {
		r.metrics.RecordError("collect_failed")
		return NewDaemonError("collect", "fast_cycle", ErrCollectorFailed)
	}
	r.metrics.RecordSnapshot(snap.CPUUtilization, snap.MemoryUtilization, snap.GPUUtilization, snap.QueueDepth)

	changed, err := r.ctrl.EvaluateQueue(ctx, snap.QueueDepth, snap.AvgResponseTimeSec)
	if err != nil {
		r.metrics.RecordTransition("failed")
		r.metrics.RecordError("transition_failed")
		return WrapError("emergency_transition", ErrTransitionFailed)
	}
	if changed {
		r.metrics.RecordTransition("success")
		r.metrics.RecordProfile(r.ctrl.CurrentProfile())
	}
	return nil
}

// RunSlowCycle drives cost-based profile selection: accrue the cost ledger,
// reconcile the desired profile with the forecast, and transition when the
// cooldown allows.
func (r *scalingRunner) RunSlowCycle(ctx context.Context) error {
	defer r.observeCycle("slow", time.Now())

	snap, err := r.source.Collect(ctx)
	if err != nil {
		r.metrics.RecordError("collect_failed")
		return NewDaemonError("collect", "slow_cycle", ErrCollectorFailed)
	}

	current := r.ctrl.CurrentProfile()
	r.ledger.Update(snap, current)
	r.metrics.RecordProfile(current)

	if r.forecaster.Trained() {
		r.metrics.RecordPrediction(r.forecaster.PredictInstances(1))
	}

	changed, err := r.ctrl.Evaluate(ctx, snap)
	if err != nil {
		r.metrics.RecordTransition("failed")
		r.metrics.RecordError("transition_failed")
		return WrapError("profile_transition", ErrTransitionFailed)
	}
	if changed {
		r.metrics.RecordTransition("success")
		r.metrics.RecordProfile(r.ctrl.CurrentProfile())
	}
	return nil
}

// RunTelemetryCycle feeds the forecaster's rolling window and the GPU
// placement history. Append-only; never proposes transitions.
func (r *scalingRunner) RunTelemetryCycle(ctx context.Context) error {
	defer r.observeCycle("telemetry", time.Now())

	snap, err := r.source.Collect(ctx)
	if err != nil {
		r.metrics.RecordError("collect_failed")
		return NewDaemonError("collect", "telemetry_cycle", ErrCollectorFailed)
	}
	r.forecaster.Collect(snap)

	if snap.HasGPU {
		samples, err := r.source.CollectGPU(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("GPU telemetry unavailable this cycle")
			return nil
		}
		r.gpus.Observe(samples)
	}
	return nil
}

// observeCycle records cycle metrics and recovers panics so one bad cycle
// cannot take down the control loops.
func (r *scalingRunner) observeCycle(loop string, start time.Time) {
	r.metrics.RecordCycleDuration(loop, time.Since(start))
	r.metrics.RecordCycleCompletion(loop)

	if rec := recover(); rec != nil {
		r.metrics.RecordError("panic")
		log.Error().Interface("panic", rec).Str("loop", loop).Msg("Recovered from panic in control cycle")
	}
}
