package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// StatusError reports a non-2xx answer from the runtime.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

// Client is the API client for the LLM runtime.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// Chat runs one synchronous chat call.
func (c *Client) Chat(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat", request, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetResponse fetches a stored exchange by request id.
func (c *Client) GetResponse(ctx context.Context, requestID string) (*Exchange, error) {
	var out Exchange
	if err := c.do(ctx, http.MethodGet, "/v1/responses/"+url.PathEscape(requestID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteResponse removes a stored exchange.
func (c *Client) DeleteResponse(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/responses/"+url.PathEscape(requestID), nil, nil)
}

// DefaultModel returns the model the runtime uses when none is given.
func (c *Client) DefaultModel(ctx context.Context) (string, error) {
	var out ModelInfo
	if err := c.do(ctx, http.MethodGet, "/v1/models/default", nil, &out); err != nil {
		return "", err
	}
	return out.Model, nil
}

// GetHealth checks the health of the service
func (c *Client) GetHealth(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTimeout sets the HTTP client timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e ErrorBody
		if err := json.Unmarshal(respBody, &e); err == nil && e.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
