package gpu

import (
	"sync"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
)

// minTrendSamples is the number of measurement rounds required before the
// manager will recommend scaling on utilization trend.
const minTrendSamples = 5

// Manager tracks GPU telemetry and places new workloads on the
// least-loaded device with sufficient memory headroom.
type Manager struct {
	targetUtilization float64

	mu      sync.RWMutex
	history [][]collector.GPUSample
	maxSize int
}

// NewManager creates a GPU manager. History is a sliding window of
// measurement rounds; the oldest round is evicted on overflow.
func NewManager(targetUtilization float64, historySize int) *Manager {
	if historySize < minTrendSamples {
		historySize = minTrendSamples
	}
	return &Manager{
		targetUtilization: targetUtilization,
		history:           make([][]collector.GPUSample, 0, historySize),
		maxSize:           historySize,
	}
}

// Observe appends one measurement round to the sliding window.
func (m *Manager) Observe(samples []collector.GPUSample) {
	round := make([]collector.GPUSample, len(samples))
	copy(round, samples)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, round)
	if len(m.history) > m.maxSize {
		m.history = m.history[1:]
	}
}

// FindPlacement picks the best GPU for a new workload: enough free memory
// and utilization under target, lowest utilization first, lowest id on
// ties. The second return is false when no GPU qualifies; callers must
// treat that as capacity exhaustion, not a fault.
func (m *Manager) FindPlacement(samples []collector.GPUSample, memoryRequirementGB float64) (int, bool) {
	best := -1
	bestUtil := 0.0

	for _, g := range samples {
		if g.FreeMemoryGB() < memoryRequirementGB || g.Utilization >= m.targetUtilization {
			continue
		}
		if best == -1 || g.Utilization < bestUtil || (g.Utilization == bestUtil && g.ID < best) {
			best = g.ID
			bestUtil = g.Utilization
		}
	}

	if best == -1 {
		return 0, false
	}
	return best, true
}

// ShouldScaleUp reports whether sustained GPU pressure warrants more
// capacity: at least minTrendSamples rounds recorded and mean utilization
// across them above target. Fewer samples is insufficient evidence.
func (m *Manager) ShouldScaleUp() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) < minTrendSamples {
		return false
	}

	recent := m.history[len(m.history)-minTrendSamples:]
	var total float64
	counted := 0
	for _, round := range recent {
		if len(round) == 0 {
			continue
		}
		var sum float64
		for _, g := range round {
			sum += g.Utilization
		}
		total += sum / float64(len(round))
		counted++
	}
	if counted < minTrendSamples {
		return false
	}

	return total/float64(counted) > m.targetUtilization
}

// Len returns the number of measurement rounds currently retained.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}
