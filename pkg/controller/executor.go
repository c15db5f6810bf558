package controller

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

// Executor performs scale actions against the external platform. Calls are
// expected to be idempotent; the executor owns its own retry and cleanup
// policy, the controller never retries a failed transition.
type Executor interface {
	// ScaleUp provisions capacity matching the given profile.
	ScaleUp(ctx context.Context, profile config.ResourceProfile) error
	// ScaleDown releases capacity belonging to the given profile.
	ScaleDown(ctx context.Context, profile config.ResourceProfile) error
	// Drain stops routing new work to capacity that is about to be
	// removed, letting in-flight work finish.
	Drain(ctx context.Context) error
}

// LogExecutor records scale actions without touching any platform. Used in
// dry-run mode.
type LogExecutor struct{}

// NewLogExecutor creates a no-op executor for dry runs.
func NewLogExecutor() *LogExecutor {
	return &LogExecutor{}
}

// ScaleUp logs the provisioning that would happen.
func (e *LogExecutor) ScaleUp(ctx context.Context, profile config.ResourceProfile) error {
	log.Info().Str("profile", profile.Name).
		Float64("cpu", profile.CPUCores).
		Float64("memory_gb", profile.MemoryGB).
		Int("gpus", profile.GPUCount).
		Msg("Dry-run: would provision capacity")
	return nil
}

// ScaleDown logs the decommissioning that would happen.
func (e *LogExecutor) ScaleDown(ctx context.Context, profile config.ResourceProfile) error {
	log.Info().Str("profile", profile.Name).Msg("Dry-run: would release capacity")
	return nil
}

// Drain logs the drain that would happen.
func (e *LogExecutor) Drain(ctx context.Context) error {
	log.Info().Msg("Dry-run: would drain connections")
	return nil
}
