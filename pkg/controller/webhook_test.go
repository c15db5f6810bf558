package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

func TestWebhookExecutorScaleUp(t *testing.T) {
	var gotPath string
	var gotProfile string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req scaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotProfile = req.Profile.Name
		json.NewEncoder(w).Encode(scaleResponse{Success: true})
	}))
	defer server.Close()

	e := NewWebhookExecutor(server.URL)
	profile := config.ResourceProfile{Name: "medium", CPUCores: 4, MemoryGB: 8, HourlyCost: 0.8, MaxConcurrent: 100}

	if err := e.ScaleUp(context.Background(), profile); err != nil {
		t.Fatalf("ScaleUp() error = %v", err)
	}
	if gotPath != "/scale-up" {
		t.Errorf("path = %s, want /scale-up", gotPath)
	}
	if gotProfile != "medium" {
		t.Errorf("profile = %s, want medium", gotProfile)
	}
}

func TestWebhookExecutorDrainHasNoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drain" {
			t.Errorf("path = %s, want /drain", r.URL.Path)
		}
		json.NewEncoder(w).Encode(scaleResponse{Success: true})
	}))
	defer server.Close()

	e := NewWebhookExecutor(server.URL)
	if err := e.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
}

func TestWebhookExecutorRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scaleResponse{Success: false, Reason: "quota exhausted"})
	}))
	defer server.Close()

	e := NewWebhookExecutor(server.URL)
	err := e.ScaleDown(context.Background(), config.ResourceProfile{Name: "small"})
	if err == nil {
		t.Fatal("ScaleDown() error = nil, want rejection")
	}
}

func TestWebhookExecutorHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewWebhookExecutor(server.URL)
	if err := e.ScaleUp(context.Background(), config.ResourceProfile{Name: "medium"}); err == nil {
		t.Fatal("ScaleUp() error = nil, want status error")
	}
}
