package config

import (
	"strings"
	"testing"
)

func TestDefaultCatalogValid(t *testing.T) {
	if err := DefaultCatalog().Validate(); err != nil {
		t.Fatalf("DefaultCatalog().Validate() = %v", err)
	}
}

func TestCatalogValidate(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
		wantErr string
	}{
		{
			name:    "empty catalog",
			catalog: Catalog{},
			wantErr: "empty",
		},
		{
			name: "duplicate names",
			catalog: Catalog{
				{Name: "a", CPUCores: 1, MemoryGB: 1, HourlyCost: 0.1, MaxConcurrent: 10},
				{Name: "a", CPUCores: 2, MemoryGB: 2, HourlyCost: 0.2, MaxConcurrent: 20},
			},
			wantErr: "duplicate",
		},
		{
			name: "cost ordering broken",
			catalog: Catalog{
				{Name: "a", CPUCores: 1, MemoryGB: 1, HourlyCost: 0.5, MaxConcurrent: 10},
				{Name: "b", CPUCores: 2, MemoryGB: 2, HourlyCost: 0.2, MaxConcurrent: 20},
			},
			wantErr: "cost ordering",
		},
		{
			name: "capacity ordering broken",
			catalog: Catalog{
				{Name: "a", CPUCores: 1, MemoryGB: 1, HourlyCost: 0.1, MaxConcurrent: 50},
				{Name: "b", CPUCores: 2, MemoryGB: 2, HourlyCost: 0.2, MaxConcurrent: 20},
			},
			wantErr: "capacity ordering",
		},
		{
			name: "non-positive resources",
			catalog: Catalog{
				{Name: "a", CPUCores: 0, MemoryGB: 1, HourlyCost: 0.1, MaxConcurrent: 10},
			},
			wantErr: "non-positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCatalogGet(t *testing.T) {
	c := DefaultCatalog()

	p, err := c.Get("medium")
	if err != nil {
		t.Fatalf("Get(medium) error = %v", err)
	}
	if p.MaxConcurrent != 100 {
		t.Errorf("medium capacity = %d, want 100", p.MaxConcurrent)
	}

	// Lookup is case-insensitive.
	if _, err := c.Get("MEDIUM"); err != nil {
		t.Errorf("Get(MEDIUM) error = %v", err)
	}

	if _, err := c.Get("petabyte"); err == nil {
		t.Error("Get(petabyte) = nil error, want unknown profile")
	}
}

func TestCatalogNeighbors(t *testing.T) {
	c := DefaultCatalog()

	up, err := c.NextLarger("small")
	if err != nil || up.Name != "medium" {
		t.Errorf("NextLarger(small) = %v, %v, want medium", up.Name, err)
	}
	down, err := c.NextSmaller("small")
	if err != nil || down.Name != "micro" {
		t.Errorf("NextSmaller(small) = %v, %v, want micro", down.Name, err)
	}

	if _, err := c.NextLarger("xlarge"); err == nil {
		t.Error("NextLarger(xlarge) = nil error, want edge error")
	}
	if _, err := c.NextSmaller("nano"); err == nil {
		t.Error("NextSmaller(nano) = nil error, want edge error")
	}
}

func TestCatalogBounds(t *testing.T) {
	c := DefaultCatalog()
	if c.Smallest().Name != "nano" {
		t.Errorf("Smallest() = %s, want nano", c.Smallest().Name)
	}
	if c.Largest().Name != "xlarge" {
		t.Errorf("Largest() = %s, want xlarge", c.Largest().Name)
	}
}
