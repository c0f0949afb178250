package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
)

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_EmptyBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", c.baseURL)
}

// ---------------------------------------------------------------------------
// Client.Relay
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func TestClient_Relay_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(reqBody), `"message":"hello"`)
		require.Contains(t, string(reqBody), `"userId":"user-7"`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"success":true,"response":"All set!"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Relay(context.Background(), domain.RelayRequest{Message: "hello", UserID: "user-7"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "All set!", resp.Response)
}

func TestClient_Relay_FailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		_, _ = w.Write([]byte(`{"success":false,"response":"Failed to process your message. Please try again."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Relay(context.Background(), domain.RelayRequest{Message: "hello", UserID: "user-7"})
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Equal(t, "Failed to process your message. Please try again.", resp.Response)
}

func TestClient_Relay_ErrorShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"error":"Missing required fields"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Relay(context.Background(), domain.RelayRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 400, apiErr.StatusCode)
	require.Equal(t, "Missing required fields", apiErr.Message)
}

func TestClient_Relay_ErrorShapeWithDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`{"error":"Internal server error","details":"boom"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Relay(context.Background(), domain.RelayRequest{Message: "hello", UserID: "user-7"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Contains(t, err.Error(), "500")
}

func TestClient_Relay_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Relay(context.Background(), domain.RelayRequest{Message: "hello", UserID: "user-7"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Relay_NetworkError(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.Relay(context.Background(), domain.RelayRequest{Message: "hello", UserID: "user-7"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

// ---------------------------------------------------------------------------
// Client.Health
// ---------------------------------------------------------------------------

func TestClient_Health_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.Health(context.Background()))
}

func TestClient_Health_Degraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Health(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}
