// Package relay is the HTTP client for the relay service, used by
// chat frontends that run outside the service process.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
)

// APIError is returned when the relay answers with the bare error
// shape instead of the success envelope, e.g. for rejected input.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("relay: %s (status %d): %s", e.Message, e.StatusCode, e.Details)
	}
	return fmt.Sprintf("relay: %s (status %d)", e.Message, e.StatusCode)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("relay: base url must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Relay submits one message. Any response carrying the success
// envelope is returned as-is, success=false included: that envelope is
// the service's answer, not a client-side failure. Responses in the
// bare error shape come back as *APIError.
func (c *Client) Relay(ctx context.Context, req domain.RelayRequest) (domain.RelayResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.RelayResponse{}, fmt.Errorf("relay: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.RelayResponse{}, fmt.Errorf("relay: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.RelayResponse{}, fmt.Errorf("relay: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return domain.RelayResponse{}, fmt.Errorf("relay: read response body: %w", err)
	}

	var payload struct {
		Success  *bool  `json:"success"`
		Response string `json:"response"`
		Error    string `json:"error"`
		Details  string `json:"details"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.RelayResponse{}, fmt.Errorf("relay: decode response: %w", err)
	}

	if payload.Success != nil {
		return domain.RelayResponse{Success: *payload.Success, Response: payload.Response}, nil
	}
	return domain.RelayResponse{}, &APIError{
		StatusCode: res.StatusCode,
		Message:    payload.Error,
		Details:    payload.Details,
	}
}

// Health checks the relay's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("relay: create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay: health check failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("relay: health check returned status %d", res.StatusCode)
	}
	return nil
}
