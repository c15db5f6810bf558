package rules

import (
	"testing"

	"github.com/agentfleet/agent-autoscaler/pkg/collector"
	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

func testEngine() *Engine {
	return NewEngine(config.DefaultCatalog(), config.DefaultConfig())
}

func TestRequiredCapacity(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name string
		snap collector.Snapshot
		want float64
	}{
		{
			name: "users dominate",
			snap: collector.Snapshot{ActiveUsers: 60, RequestsPerMinute: 50},
			want: 60,
		},
		{
			name: "request rate dominates",
			snap: collector.Snapshot{ActiveUsers: 10, RequestsPerMinute: 100},
			want: 80, // 100 * 0.8 safety margin
		},
		{
			name: "idle fleet",
			snap: collector.Snapshot{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.RequiredCapacity(&tt.snap)
			if got != tt.want {
				t.Errorf("RequiredCapacity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectProfile(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name string
		snap collector.Snapshot
		want string
	}{
		{
			name: "moderate load picks medium",
			snap: collector.Snapshot{ActiveUsers: 60, RequestsPerMinute: 50, CPUUtilization: 0.5},
			want: "medium",
		},
		{
			name: "light load picks nano",
			snap: collector.Snapshot{ActiveUsers: 5, RequestsPerMinute: 5, CPUUtilization: 0.1},
			want: "nano",
		},
		{
			name: "demand beyond catalog fails open to largest",
			snap: collector.Snapshot{ActiveUsers: 5000, RequestsPerMinute: 10, CPUUtilization: 0.95},
			want: "xlarge",
		},
		{
			name: "memory pressure counts toward utilization",
			snap: collector.Snapshot{ActiveUsers: 60, CPUUtilization: 0.2, MemoryUtilization: 0.7},
			want: "medium",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.SelectProfile(&tt.snap)
			if got.Name != tt.want {
				t.Errorf("SelectProfile() = %s, want %s", got.Name, tt.want)
			}
		})
	}
}

func TestSelectProfileDeterministic(t *testing.T) {
	e := testEngine()
	snap := &collector.Snapshot{ActiveUsers: 42, RequestsPerMinute: 30, CPUUtilization: 0.6}

	first := e.SelectProfile(snap)
	for i := 0; i < 10; i++ {
		if got := e.SelectProfile(snap); got.Name != first.Name {
			t.Fatalf("selection not deterministic: got %s then %s", first.Name, got.Name)
		}
	}
}

func TestSelectForCapacityPrefersCheaperOnTie(t *testing.T) {
	// Two profiles with identical capacity force a score comparison where
	// the utilization penalty is equal; the cheaper one must win.
	catalog := config.Catalog{
		{Name: "a", CPUCores: 1, MemoryGB: 1, HourlyCost: 0.10, MaxConcurrent: 100},
		{Name: "b", CPUCores: 2, MemoryGB: 2, HourlyCost: 0.20, MaxConcurrent: 100},
	}
	e := NewEngine(catalog, config.DefaultConfig())

	got := e.SelectForCapacity(50, 0.70)
	if got.Name != "a" {
		t.Errorf("SelectForCapacity() = %s, want a", got.Name)
	}
}

func TestEvaluateQueue(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name       string
		queueDepth int
		responseT  float64
		want       EmergencyAction
	}{
		{"deep queue scales up", 15, 1.0, ActionScaleUp},
		{"slow responses scale up", 2, 6.0, ActionScaleUp},
		{"queue at threshold holds", 10, 3.0, ActionHold},
		{"quiet fleet scales down", 3, 1.0, ActionScaleDown},
		{"fast but half-full queue holds", 5, 1.0, ActionHold},
		{"empty queue with slow responses holds", 0, 3.0, ActionHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.EvaluateQueue(tt.queueDepth, tt.responseT)
			if got != tt.want {
				t.Errorf("EvaluateQueue(%d, %v) = %s, want %s",
					tt.queueDepth, tt.responseT, got, tt.want)
			}
		})
	}
}

func TestEmergencyActionString(t *testing.T) {
	if ActionScaleUp.String() != "scale_up" || ActionScaleDown.String() != "scale_down" || ActionHold.String() != "hold" {
		t.Error("unexpected action names")
	}
}
