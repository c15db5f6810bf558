package config

import (
	"fmt"
	"strings"
)

// ResourceProfile describes a named bundle of compute allocation, its
// hourly cost, and the concurrent load it can serve.
type ResourceProfile struct {
	Name          string  `json:"name"`
	CPUCores      float64 `json:"cpu_cores"`
	MemoryGB      float64 `json:"memory_gb"`
	GPUCount      int     `json:"gpu_count"`
	HourlyCost    float64 `json:"hourly_cost"`
	MaxConcurrent int     `json:"max_concurrent"` // Concurrent-user capacity
}

// Catalog is an ordered set of resource profiles, ascending by cost.
type Catalog []ResourceProfile

// DefaultCatalog returns the standard agent serving profiles.
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: "nano", CPUCores: 0.5, MemoryGB: 1, GPUCount: 0, HourlyCost: 0.05, MaxConcurrent: 10},
		{Name: "micro", CPUCores: 1, MemoryGB: 2, GPUCount: 0, HourlyCost: 0.10, MaxConcurrent: 25},
		{Name: "small", CPUCores: 2, MemoryGB: 4, GPUCount: 0, HourlyCost: 0.20, MaxConcurrent: 50},
		{Name: "medium", CPUCores: 4, MemoryGB: 8, GPUCount: 1, HourlyCost: 0.80, MaxConcurrent: 100},
		{Name: "large", CPUCores: 8, MemoryGB: 16, GPUCount: 2, HourlyCost: 1.60, MaxConcurrent: 200},
		{Name: "xlarge", CPUCores: 16, MemoryGB: 32, GPUCount: 4, HourlyCost: 3.20, MaxConcurrent: 400},
	}
}

// DefaultStartProfile is the profile the controller assumes at startup when
// no starting profile is configured.
const DefaultStartProfile = "small"

// Validate checks that the catalog is non-empty and that capacity and cost
// are monotonically non-decreasing in catalog order.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("catalog is empty")
	}
	seen := make(map[string]bool, len(c))
	for i, p := range c {
		if p.Name == "" {
			return fmt.Errorf("profile %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true
		if p.CPUCores <= 0 || p.MemoryGB <= 0 || p.HourlyCost <= 0 || p.MaxConcurrent <= 0 {
			return fmt.Errorf("profile %q has non-positive resource values", p.Name)
		}
		if p.GPUCount < 0 {
			return fmt.Errorf("profile %q has negative GPU count", p.Name)
		}
		if i > 0 {
			prev := c[i-1]
			if p.HourlyCost < prev.HourlyCost {
				return fmt.Errorf("profile %q breaks cost ordering (%v < %v)", p.Name, p.HourlyCost, prev.HourlyCost)
			}
			if p.MaxConcurrent < prev.MaxConcurrent {
				return fmt.Errorf("profile %q breaks capacity ordering (%d < %d)", p.Name, p.MaxConcurrent, prev.MaxConcurrent)
			}
		}
	}
	return nil
}

// Get returns the profile with the given name.
func (c Catalog) Get(name string) (ResourceProfile, error) {
	for _, p := range c {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return ResourceProfile{}, fmt.Errorf("unknown profile: %s", name)
}

// Largest returns the highest-capacity profile in the catalog.
func (c Catalog) Largest() ResourceProfile {
	return c[len(c)-1]
}

// Smallest returns the lowest-capacity profile in the catalog.
func (c Catalog) Smallest() ResourceProfile {
	return c[0]
}

// NextLarger returns the profile one step above the named profile.
func (c Catalog) NextLarger(name string) (ResourceProfile, error) {
	for i, p := range c {
		if p.Name == name {
			if i == len(c)-1 {
				return ResourceProfile{}, fmt.Errorf("%s is already the largest profile", name)
			}
			return c[i+1], nil
		}
	}
	return ResourceProfile{}, fmt.Errorf("unknown profile: %s", name)
}

// NextSmaller returns the profile one step below the named profile.
func (c Catalog) NextSmaller(name string) (ResourceProfile, error) {
	for i, p := range c {
		if p.Name == name {
			if i == 0 {
				return ResourceProfile{}, fmt.Errorf("%s is already the smallest profile", name)
			}
			return c[i-1], nil
		}
	}
	return ResourceProfile{}, fmt.Errorf("unknown profile: %s", name)
}

// String renders a profile as a compact resource summary.
func (p ResourceProfile) String() string {
	return fmt.Sprintf("%s (%.1f CPU, %.0f GB, %d GPU, $%.2f/h, cap %d)",
		p.Name, p.CPUCores, p.MemoryGB, p.GPUCount, p.HourlyCost, p.MaxConcurrent)
}
