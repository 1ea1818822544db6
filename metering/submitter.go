// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Submitter delivers an aggregated usage event to the billing backend.
// Implementations plug in the real Marketplace metering API; the
// aggregator itself never depends on a specific transport.
type Submitter interface {
	Submit(ctx context.Context, event map[string]interface{}) error
}

// SubmitterFunc adapts a plain function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, event map[string]interface{}) error

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, event map[string]interface{}) error {
	return f(ctx, event)
}

// HTTPSubmitter posts usage events as JSON to a Marketplace metering
// endpoint.
type HTTPSubmitter struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPSubmitter creates a submitter for the given endpoint. An empty
// apiKey disables the Authorization header.
func NewHTTPSubmitter(endpoint, apiKey string) *HTTPSubmitter {
	return &HTTPSubmitter{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts the event and treats any non-2xx response as an error.
func (s *HTTPSubmitter) Submit(ctx context.Context, event map[string]interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal usage event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("usage event submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("usage event submission returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
