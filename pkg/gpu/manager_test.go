package gpu

import (
	"testing"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
)

func TestFindPlacement(t *testing.T) {
	m := NewManager(0.8, 5)

	samples := []collector.GPUSample{
		{ID: 0, Utilization: 0.9, MemoryUsedGB: 10, MemoryTotalGB: 16},
		{ID: 1, Utilization: 0.3, MemoryUsedGB: 4, MemoryTotalGB: 16},
		{ID: 2, Utilization: 0.5, MemoryUsedGB: 2, MemoryTotalGB: 16},
	}

	tests := []struct {
		name    string
		samples []collector.GPUSample
		memGB   float64
		wantID  int
		wantOK  bool
	}{
		{
			name:    "least loaded qualifying GPU wins",
			samples: samples,
			memGB:   4,
			wantID:  1,
			wantOK:  true,
		},
		{
			name:    "memory requirement filters candidates",
			samples: samples,
			memGB:   13,
			wantID:  2,
			wantOK:  true,
		},
		{
			name:    "no GPU has enough memory",
			samples: samples,
			memGB:   15,
			wantOK:  false,
		},
		{
			name: "utilization at target disqualifies",
			samples: []collector.GPUSample{
				{ID: 0, Utilization: 0.8, MemoryUsedGB: 0, MemoryTotalGB: 16},
			},
			memGB:  1,
			wantOK: false,
		},
		{
			name: "tie on utilization goes to lowest id",
			samples: []collector.GPUSample{
				{ID: 3, Utilization: 0.4, MemoryUsedGB: 0, MemoryTotalGB: 16},
				{ID: 1, Utilization: 0.4, MemoryUsedGB: 0, MemoryTotalGB: 16},
			},
			memGB:  1,
			wantID: 1,
			wantOK: true,
		},
		{
			name:   "empty sample set",
			memGB:  1,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := m.FindPlacement(tt.samples, tt.memGB)
			if ok != tt.wantOK {
				t.Fatalf("FindPlacement() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Errorf("FindPlacement() id = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func round(util float64) []collector.GPUSample {
	return []collector.GPUSample{
		{ID: 0, Utilization: util, MemoryTotalGB: 16},
		{ID: 1, Utilization: util, MemoryTotalGB: 16},
	}
}

func TestShouldScaleUpNeedsHistory(t *testing.T) {
	m := NewManager(0.8, 5)

	for i := 0; i < 4; i++ {
		m.Observe(round(0.95))
	}
	if m.ShouldScaleUp() {
		t.Error("ShouldScaleUp() = true with only 4 rounds, want false")
	}

	m.Observe(round(0.95))
	if !m.ShouldScaleUp() {
		t.Error("ShouldScaleUp() = false after 5 hot rounds, want true")
	}
}

func TestShouldScaleUpBelowTarget(t *testing.T) {
	m := NewManager(0.8, 5)

	for i := 0; i < 5; i++ {
		m.Observe(round(0.5))
	}
	if m.ShouldScaleUp() {
		t.Error("ShouldScaleUp() = true at 50 percent utilization, want false")
	}
}

func TestObserveEvictsOldest(t *testing.T) {
	m := NewManager(0.8, 5)

	// Five cool rounds, then five hot ones: the window must slide so the
	// trend reflects only the hot rounds.
	for i := 0; i < 5; i++ {
		m.Observe(round(0.1))
	}
	for i := 0; i < 5; i++ {
		m.Observe(round(0.95))
	}

	if m.Len() != 5 {
		t.Errorf("Len() = %d, want 5", m.Len())
	}
	if !m.ShouldScaleUp() {
		t.Error("ShouldScaleUp() = false after window slid to hot rounds, want true")
	}
}
