// Package mcp exposes the rural-investment query API as tools a language
// model can call. The tool layer resolves colloquial state and program names
// to canonical values and forwards everything else to the HTTP API verbatim,
// so the API's validation errors pass through unchanged.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient is a thin HTTP client for the query API.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// apiResult carries the raw response body plus whether the API rejected the
// request. Rejection bodies are still useful output for the caller.
type apiResult struct {
	Body    string
	IsError bool
}

func (c *APIClient) get(ctx context.Context, path string) (apiResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apiResult{}, fmt.Errorf("building request: %w", err)
	}
	return c.do(req)
}

func (c *APIClient) postJSON(ctx context.Context, path string, payload any) (apiResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return apiResult{}, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apiResult{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *APIClient) do(req *http.Request) (apiResult, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return apiResult{}, fmt.Errorf("calling query API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResult{}, fmt.Errorf("reading response: %w", err)
	}
	return apiResult{Body: string(body), IsError: resp.StatusCode >= 400}, nil
}

// Health fetches /health.
func (c *APIClient) Health(ctx context.Context) (apiResult, error) {
	return c.get(ctx, "/health")
}

// Schema fetches /schema.
func (c *APIClient) Schema(ctx context.Context) (apiResult, error) {
	return c.get(ctx, "/schema")
}

// QueryInvestments posts a nested filter to /investments/query.
func (c *APIClient) QueryInvestments(ctx context.Context, spec map[string]any, limit, offset int) (apiResult, error) {
	return c.postJSON(ctx, "/investments/query", map[string]any{
		"filters": spec,
		"limit":   limit,
		"offset":  offset,
	})
}

// AggregateInvestments posts a grouped summary request to /summary/query.
func (c *APIClient) AggregateInvestments(ctx context.Context, dimension string, spec map[string]any) (apiResult, error) {
	return c.postJSON(ctx, "/summary/query", map[string]any{
		"dimension": dimension,
		"filters":   spec,
	})
}
