package collector

import (
	"context"
	"sync"
	"time"
)

// StaticSource serves fixed telemetry values. Used for dry runs and tests
// where no monitoring backend is reachable.
type StaticSource struct {
	mu       sync.RWMutex
	snapshot Snapshot
	gpus     []GPUSample
}

// NewStaticSource creates a source that returns the given snapshot and GPU
// samples, stamped with the current time on every Collect.
func NewStaticSource(snapshot Snapshot, gpus []GPUSample) *StaticSource {
	return &StaticSource{snapshot: snapshot, gpus: gpus}
}

// Collect returns a copy of the configured snapshot.
func (s *StaticSource) Collect(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Timestamp = time.Now()
	return &snap, nil
}

// CollectGPU returns a copy of the configured GPU samples.
func (s *StaticSource) CollectGPU(ctx context.Context) ([]GPUSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]GPUSample, len(s.gpus))
	copy(out, s.gpus)
	return out, nil
}

// Set replaces the served snapshot.
func (s *StaticSource) Set(snapshot Snapshot, gpus []GPUSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.gpus = gpus
}
