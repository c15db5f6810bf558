package rules

import (
	"github.com/agentfleet/agent-autoscaler/pkg/collector"
	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

// Engine is the profile selection rules engine.
type Engine struct {
	catalog config.Catalog
	config  *config.Config
}

// NewEngine creates a new rules engine over the given catalog.
func NewEngine(catalog config.Catalog, cfg *config.Config) *Engine {
	return &Engine{
		catalog: catalog,
		config:  cfg,
	}
}

// RequiredCapacity derives the concurrent-user capacity a snapshot demands.
// Requests/minute is discounted by the configured safety margin before the
// comparison; the basis mixes instantaneous and per-minute units, so the
// margin is policy, not a conversion.
func (e *Engine) RequiredCapacity(snap *collector.Snapshot) float64 {
	required := float64(snap.ActiveUsers)
	if byRate := snap.RequestsPerMinute * e.config.CapacitySafetyMargin; byRate > required {
		required = byRate
	}
	return required
}

// SelectProfile returns the most cost-effective profile able to serve the
// snapshot's load. Pure function of snapshot, catalog, and policy: identical
// inputs always yield the same profile.
func (e *Engine) SelectProfile(snap *collector.Snapshot) config.ResourceProfile {
	return e.SelectForCapacity(e.RequiredCapacity(snap), snap.MaxUtilization())
}

// SelectForCapacity picks the cheapest well-utilized profile with at least
// the required concurrent-user capacity.
//
// When no profile has enough capacity the largest profile is returned,
// failing open toward availability over cost.
func (e *Engine) SelectForCapacity(required, currentUtil float64) config.ResourceProfile {
	var candidates []config.ResourceProfile
	for _, p := range e.catalog {
		if float64(p.MaxConcurrent) >= required {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return e.catalog.Largest()
	}

	// Score: hourly cost plus a penalty for distance from target
	// utilization. Ties go to the cheaper profile, then catalog order.
	best := candidates[0]
	bestScore := e.score(best, currentUtil)
	for _, p := range candidates[1:] {
		s := e.score(p, currentUtil)
		if s < bestScore || (s == bestScore && p.HourlyCost < best.HourlyCost) {
			best = p
			bestScore = s
		}
	}
	return best
}

func (e *Engine) score(p config.ResourceProfile, currentUtil float64) float64 {
	distance := currentUtil - e.config.TargetUtilization
	if distance < 0 {
		distance = -distance
	}
	return p.HourlyCost + distance*e.config.UtilizationPenalty
}

// EmergencyAction is the fast-loop verdict on queue depth and response time.
type EmergencyAction int

const (
	ActionHold EmergencyAction = iota
	ActionScaleUp
	ActionScaleDown
)

// String returns the action name.
func (a EmergencyAction) String() string {
	switch a {
	case ActionScaleUp:
		return "scale_up"
	case ActionScaleDown:
		return "scale_down"
	default:
		return "hold"
	}
}

// EvaluateQueue applies the emergency thresholds: scale up when the queue
// exceeds its target or responses are slow, scale down when the queue has
// fallen below half target and responses are fast. Cooldown gating is the
// controller's job, not this function's.
func (e *Engine) EvaluateQueue(queueDepth int, avgResponseTimeSec float64) EmergencyAction {
	if queueDepth > e.config.TargetQueueSize || avgResponseTimeSec > e.config.ScaleUpLatencySec {
		return ActionScaleUp
	}
	if queueDepth < e.config.TargetQueueSize/2 && avgResponseTimeSec < e.config.ScaleDownLatency {
		return ActionScaleDown
	}
	return ActionHold
}
