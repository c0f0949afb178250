package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultEndpoint = "https://automation.lyra-app.io/webhook/assistant"

// webhookRequest is the payload forwarded to the automation endpoint.
type webhookRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// webhookResponse is the minimal shape read back from the endpoint.
// Different automation flows name the reply field differently, so both
// known spellings are accepted.
type webhookResponse struct {
	Response string `json:"response"`
	Output   string `json:"output"`
}

// Getter is the parameter source the client reads its shared secret
// from. *paramstore.Client satisfies this interface.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ErrSecretUnavailable reports that the shared secret could not be
// resolved. No outbound request is ever attempted in that state.
var ErrSecretUnavailable = errors.New("automation: webhook secret unavailable")

// ErrMalformedResponse reports that the endpoint answered 2xx with a
// body that could not be decoded.
var ErrMalformedResponse = errors.New("automation: malformed response")

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("automation: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client forwards user messages to the external automation endpoint
// under the relay's shared secret.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	getter      Getter
	secretName  string
	paramPrefix string

	secretMu     sync.RWMutex
	secretLoaded bool
	secret       string
}

type Option func(*Client)

// WithBaseURL overrides the fixed automation endpoint, e.g. for a
// staging flow or a local capture server in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSecretParameter overrides the full parameter name the shared
// secret is read from, instead of deriving it from the prefix.
func WithSecretParameter(name string) Option {
	return func(c *Client) {
		c.secretName = strings.TrimSpace(name)
	}
}

// NewClient creates a Client backed by the given parameter source for
// shared-secret retrieval. The secret is fetched on the first Send and
// reused for the lifetime of the process; a failed fetch is retried on
// the next call rather than cached.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("automation: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("automation: parameter prefix must not be empty")
	}
	c := &Client{
		endpoint:    defaultEndpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.secretName == "" {
		c.secretName = c.paramPrefix + "/webhook-secret"
	}
	return c, nil
}

// Send forwards one message to the automation endpoint and returns the
// extracted reply text, trimmed. The reply may be empty when the
// endpoint answered without one; callers decide how to present that.
// Without a resolvable shared secret the request is never issued and
// the returned error matches ErrSecretUnavailable.
func (c *Client) Send(ctx context.Context, message, userID, correlationID string) (string, error) {
	secret, err := c.resolveSecret(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(webhookRequest{
		Message:   message,
		UserID:    userID,
		Timestamp: timeNow().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("automation: marshal request: %w", err)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("automation: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)
	if correlationID != "" {
		req.Header.Set("X-Correlation-Id", correlationID)
	}

	raw, err := c.doJSONRequest(req, c.endpoint)
	if err != nil {
		return "", err
	}

	var payload webhookResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, decErr)
	}
	if reply := strings.TrimSpace(payload.Response); reply != "" {
		return reply, nil
	}
	return strings.TrimSpace(payload.Output), nil
}

// resolveSecret returns the cached shared secret, fetching it from the
// parameter source on first use. Only a successful fetch is cached, so
// a transient parameter-store outage heals on the next request.
func (c *Client) resolveSecret(ctx context.Context) (string, error) {
	c.secretMu.RLock()
	if c.secretLoaded {
		defer c.secretMu.RUnlock()
		return c.secret, nil
	}
	c.secretMu.RUnlock()

	c.secretMu.Lock()
	defer c.secretMu.Unlock()
	if c.secretLoaded {
		return c.secret, nil
	}

	raw, err := c.getter.GetParameter(ctx, c.secretName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}
	secret := strings.TrimSpace(raw)
	if secret == "" {
		return "", fmt.Errorf("%w: parameter %q is empty", ErrSecretUnavailable, c.secretName)
	}
	c.secret = secret
	c.secretLoaded = true
	return c.secret, nil
}

// resolvedHTTPClient returns the configured HTTP client, or a default
// with a 10s timeout if none was set.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("automation: request failed: %w", doErr)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("automation: read response body: %w", err)
	}
	return buf, nil
}

var timeNow = time.Now
