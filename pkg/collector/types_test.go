package collector

import (
	"context"
	"testing"
)

func TestMaxUtilization(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{
			name: "cpu highest",
			snap: Snapshot{CPUUtilization: 0.8, MemoryUtilization: 0.5},
			want: 0.8,
		},
		{
			name: "memory highest",
			snap: Snapshot{CPUUtilization: 0.3, MemoryUtilization: 0.9},
			want: 0.9,
		},
		{
			name: "gpu counts when present",
			snap: Snapshot{CPUUtilization: 0.3, GPUUtilization: 0.95, HasGPU: true},
			want: 0.95,
		},
		{
			name: "gpu ignored when absent",
			snap: Snapshot{CPUUtilization: 0.3, GPUUtilization: 0.95},
			want: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.MaxUtilization(); got != tt.want {
				t.Errorf("MaxUtilization() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFreeMemoryGB(t *testing.T) {
	g := GPUSample{MemoryUsedGB: 6, MemoryTotalGB: 16}
	if got := g.FreeMemoryGB(); got != 10 {
		t.Errorf("FreeMemoryGB() = %v, want 10", got)
	}
}

func TestStaticSourceCollect(t *testing.T) {
	src := NewStaticSource(
		Snapshot{ActiveUsers: 12, RequestsPerMinute: 30},
		[]GPUSample{{ID: 0, Utilization: 0.4}},
	)

	snap, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if snap.ActiveUsers != 12 {
		t.Errorf("ActiveUsers = %d, want 12", snap.ActiveUsers)
	}
	if snap.Timestamp.IsZero() {
		t.Error("Collect() did not stamp the snapshot")
	}

	// Mutating a returned snapshot must not leak back into the source.
	snap.ActiveUsers = 999
	again, _ := src.Collect(context.Background())
	if again.ActiveUsers != 12 {
		t.Error("returned snapshot aliases source state")
	}
}

func TestStaticSourceSet(t *testing.T) {
	src := NewStaticSource(Snapshot{ActiveUsers: 1}, nil)
	src.Set(Snapshot{ActiveUsers: 50, QueueDepth: 7}, []GPUSample{{ID: 2}})

	snap, _ := src.Collect(context.Background())
	if snap.ActiveUsers != 50 || snap.QueueDepth != 7 {
		t.Errorf("snapshot = %+v, want updated values", snap)
	}

	gpus, err := src.CollectGPU(context.Background())
	if err != nil {
		t.Fatalf("CollectGPU() error = %v", err)
	}
	if len(gpus) != 1 || gpus[0].ID != 2 {
		t.Errorf("gpus = %v, want the replacement sample", gpus)
	}
}
