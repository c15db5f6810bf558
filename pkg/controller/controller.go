package controller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
	"github.com/agentfleet/agent-autoscaler/pkg/config"
	"github.com/agentfleet/agent-autoscaler/pkg/rules"
)

// Phase is the transition state machine's current step.
type Phase int

const (
	PhaseStable Phase = iota
	PhaseScalingUp
	PhaseDraining
	PhaseScalingDown
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseScalingUp:
		return "scaling_up"
	case PhaseDraining:
		return "draining"
	case PhaseScalingDown:
		return "scaling_down"
	default:
		return "stable"
	}
}

// Predictor supplies the forecaster's instance estimate. Untrained
// predictors are ignored during profile reconciliation.
type Predictor interface {
	Trained() bool
	PredictInstances(currentInstances int) int
}

// State is a read-only copy of the controller's scaling state.
type State struct {
	Profile        config.ResourceProfile `json:"profile"`
	Phase          string                 `json:"phase"`
	LastTransition time.Time              `json:"last_transition"`
}

// Controller owns the scaling state and drives cooldown-gated transitions.
// Both control loops funnel their proposals through one mutex, so at most
// one transition runs at a time and the cooldown clock is shared.
type Controller struct {
	cfg       *config.Config
	catalog   config.Catalog
	engine    *rules.Engine
	executor  Executor
	predictor Predictor
	now       func() time.Time

	mu             sync.Mutex
	profile        config.ResourceProfile
	phase          Phase
	lastTransition time.Time
}

// New creates a controller starting at the given profile in Stable phase.
func New(cfg *config.Config, catalog config.Catalog, engine *rules.Engine, executor Executor, predictor Predictor, start config.ResourceProfile) *Controller {
	return &Controller{
		cfg:       cfg,
		catalog:   catalog,
		engine:    engine,
		executor:  executor,
		predictor: predictor,
		now:       time.Now,
		profile:   start,
		phase:     PhaseStable,
	}
}

// State returns a copy of the current scaling state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Profile:        c.profile,
		Phase:          c.phase.String(),
		LastTransition: c.lastTransition,
	}
}

// CurrentProfile returns the profile the controller believes is serving.
func (c *Controller) CurrentProfile() config.ResourceProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Evaluate is the slow-loop entry point: pick the desired profile for the
// snapshot, reconcile it with the forecaster, and transition if the
// cooldown allows. Returns true when a transition completed.
func (c *Controller) Evaluate(ctx context.Context, snap *collector.Snapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	desired := c.desiredProfile(snap)
	if desired.Name == c.profile.Name {
		return false, nil
	}

	if !c.cooldownElapsed() {
		log.Debug().
			Str("current", c.profile.Name).
			Str("desired", desired.Name).
			Dur("remaining", c.cooldownRemaining()).
			Msg("Transition suppressed by cooldown")
		return false, nil
	}

	if err := c.transitionLocked(ctx, desired); err != nil {
		return false, err
	}
	return true, nil
}

// EvaluateQueue is the fast-loop entry point: queue depth or response-time
// pressure forces a one-step profile change, bypassing cost scoring.
func (c *Controller) EvaluateQueue(ctx context.Context, queueDepth int, avgResponseTimeSec float64) (bool, error) {
	action := c.engine.EvaluateQueue(queueDepth, avgResponseTimeSec)
	if action == rules.ActionHold {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cooldownElapsed() {
		log.Debug().
			Str("action", action.String()).
			Dur("remaining", c.cooldownRemaining()).
			Msg("Emergency transition suppressed by cooldown")
		return false, nil
	}

	var target config.ResourceProfile
	var err error
	if action == rules.ActionScaleUp {
		target, err = c.catalog.NextLarger(c.profile.Name)
	} else {
		target, err = c.catalog.NextSmaller(c.profile.Name)
	}
	if err != nil {
		log.Debug().Str("action", action.String()).Str("profile", c.profile.Name).
			Msg("No adjacent profile for emergency transition")
		return false, nil
	}

	log.Warn().
		Str("action", action.String()).
		Int("queue_depth", queueDepth).
		Float64("avg_response_sec", avgResponseTimeSec).
		Str("target", target.Name).
		Msg("Emergency transition triggered")

	if err := c.transitionLocked(ctx, target); err != nil {
		return false, err
	}
	return true, nil
}

// desiredProfile scores the catalog against the snapshot, then lets the
// forecaster raise (never lower) the capacity requirement.
func (c *Controller) desiredProfile(snap *collector.Snapshot) config.ResourceProfile {
	required := c.engine.RequiredCapacity(snap)

	if c.predictor != nil && c.predictor.Trained() {
		// One instance serves RequestsPerInstance requests/hour; the
		// safety margin keeps the unit basis consistent with the live
		// capacity computation.
		unit := float64(c.cfg.RequestsPerInstance) / 60.0 * c.cfg.CapacitySafetyMargin
		current := int(math.Ceil(required / unit))
		if current < 1 {
			current = 1
		}
		if forecast := float64(c.predictor.PredictInstances(current)) * unit; forecast > required {
			log.Debug().Float64("live", required).Float64("forecast", forecast).
				Msg("Forecast raised capacity requirement")
			required = forecast
		}
	}

	return c.engine.SelectForCapacity(required, snap.MaxUtilization())
}

func (c *Controller) cooldownElapsed() bool {
	return c.now().Sub(c.lastTransition) >= c.cfg.CoolDownPeriod
}

func (c *Controller) cooldownRemaining() time.Duration {
	return c.cfg.CoolDownPeriod - c.now().Sub(c.lastTransition)
}

// transitionLocked runs the transition state machine. Callers hold c.mu.
//
// The cooldown stamp is taken at initiation, not completion, so transition
// frequency stays bounded even when the executor is slow. On any executor
// failure the state reverts to Stable on the previous profile; the next
// poll cycle re-evaluates from known-good state.
func (c *Controller) transitionLocked(ctx context.Context, to config.ResourceProfile) error {
	from := c.profile
	c.lastTransition = c.now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TransitionTimeout)
	defer cancel()

	log.Info().
		Str("from", from.Name).
		Str("to", to.Name).
		Float64("hourly_cost_delta", to.HourlyCost-from.HourlyCost).
		Msg("Starting profile transition")

	var err error
	if to.HourlyCost > from.HourlyCost {
		err = c.scaleUpSequence(ctx, from, to)
	} else {
		err = c.scaleDownSequence(ctx, from, to)
	}
	if err != nil {
		c.phase = PhaseStable
		log.Error().Err(err).
			Str("from", from.Name).
			Str("to", to.Name).
			Msg("Transition failed, holding previous profile")
		return fmt.Errorf("transition %s -> %s: %w", from.Name, to.Name, err)
	}

	c.profile = to
	c.phase = PhaseStable
	log.Info().Str("profile", to.Name).Msg("Transition complete")
	return nil
}

// scaleUpSequence provisions new capacity before releasing the old, so
// serving capacity never dips during the transition.
func (c *Controller) scaleUpSequence(ctx context.Context, from, to config.ResourceProfile) error {
	c.phase = PhaseScalingUp
	if err := c.executor.ScaleUp(ctx, to); err != nil {
		return fmt.Errorf("scale up: %w", err)
	}
	if err := c.wait(ctx, c.cfg.SettleDelay); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	c.phase = PhaseScalingDown
	if err := c.executor.ScaleDown(ctx, from); err != nil {
		return fmt.Errorf("release old capacity: %w", err)
	}
	return nil
}

// scaleDownSequence drains connections, then decommissions the excess. No
// provisioning step: the remaining capacity already covers the target
// profile.
func (c *Controller) scaleDownSequence(ctx context.Context, from, to config.ResourceProfile) error {
	c.phase = PhaseDraining
	if err := c.executor.Drain(ctx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	if err := c.wait(ctx, c.cfg.DrainDelay); err != nil {
		return fmt.Errorf("drain delay: %w", err)
	}
	c.phase = PhaseScalingDown
	if err := c.executor.ScaleDown(ctx, from); err != nil {
		return fmt.Errorf("release capacity: %w", err)
	}
	return nil
}

// wait sleeps for d or until the context is cancelled.
func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
