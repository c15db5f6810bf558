package collector

import (
	"context"
	"time"
)

// Snapshot is an immutable point-in-time observation of load and resource
// usage for the agent fleet. Produced by a Source at a fixed cadence; the
// controller never mutates it.
type Snapshot struct {
	Timestamp          time.Time `json:"timestamp"`
	ActiveUsers        int       `json:"active_users"`
	RequestsPerMinute  float64   `json:"requests_per_minute"`
	AvgResponseTimeSec float64   `json:"avg_response_time_sec"`
	QueueDepth         int       `json:"queue_depth"`
	CPUUtilization     float64   `json:"cpu_utilization"`    // [0,1]
	MemoryUtilization  float64   `json:"memory_utilization"` // [0,1]
	GPUUtilization     float64   `json:"gpu_utilization"`    // [0,1], meaningful only when HasGPU
	HasGPU             bool      `json:"has_gpu"`
}

// MaxUtilization returns the highest utilization dimension of the snapshot.
// Missing GPU telemetry contributes zero.
func (s *Snapshot) MaxUtilization() float64 {
	u := s.CPUUtilization
	if s.MemoryUtilization > u {
		u = s.MemoryUtilization
	}
	if s.HasGPU && s.GPUUtilization > u {
		u = s.GPUUtilization
	}
	return u
}

// GPUSample holds telemetry for one physical GPU.
type GPUSample struct {
	ID            int     `json:"id"`
	Utilization   float64 `json:"utilization"` // [0,1]
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	TemperatureC  float64 `json:"temperature_c"`
	PowerDrawW    float64 `json:"power_draw_w"`
}

// FreeMemoryGB returns the unallocated GPU memory.
func (g GPUSample) FreeMemoryGB() float64 {
	return g.MemoryTotalGB - g.MemoryUsedGB
}

// Source supplies already-sampled telemetry. The core never pulls from a
// live telemetry API directly; it consumes snapshots through this interface.
type Source interface {
	Collect(ctx context.Context) (*Snapshot, error)
	CollectGPU(ctx context.Context) ([]GPUSample, error)
}
