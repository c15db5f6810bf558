package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentfleet/agent-autoscaler/pkg/config"
)

// WebhookExecutor delegates scale actions to an external operator endpoint
// over HTTP. The endpoint owns the actual platform work and is expected to
// handle repeated deliveries idempotently.
type WebhookExecutor struct {
	baseURL string
	client  *http.Client
}

// NewWebhookExecutor creates an executor posting to baseURL.
func NewWebhookExecutor(baseURL string) *WebhookExecutor {
	return &WebhookExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type scaleRequest struct {
	Profile config.ResourceProfile `json:"profile"`
}

type scaleResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// ScaleUp asks the operator to provision capacity for the profile.
func (e *WebhookExecutor) ScaleUp(ctx context.Context, profile config.ResourceProfile) error {
	return e.post(ctx, "/scale-up", &scaleRequest{Profile: profile})
}

// ScaleDown asks the operator to release the profile's capacity.
func (e *WebhookExecutor) ScaleDown(ctx context.Context, profile config.ResourceProfile) error {
	return e.post(ctx, "/scale-down", &scaleRequest{Profile: profile})
}

// Drain asks the operator to stop routing new work to doomed capacity.
func (e *WebhookExecutor) Drain(ctx context.Context) error {
	return e.post(ctx, "/drain", nil)
}

func (e *WebhookExecutor) post(ctx context.Context, path string, payload interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("executor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("executor returned status %d", resp.StatusCode)
	}

	var result scaleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode executor response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("executor rejected %s: %s", path, result.Reason)
	}
	return nil
}
