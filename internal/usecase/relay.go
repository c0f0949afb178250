package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/integrations/automation"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/metrics"
)

// PlaceholderReply stands in when the automation flow acknowledged a
// message without returning any reply text.
const PlaceholderReply = "Message received."

// WebhookCaller forwards one message to the automation endpoint and
// returns the reply text. *automation.Client satisfies this interface.
type WebhookCaller interface {
	Send(ctx context.Context, message, userID, correlationID string) (string, error)
}

// RelayInput carries one inbound submission. CorrelationID is optional
// and passed through to the automation endpoint when present.
type RelayInput struct {
	Message       string
	UserID        string
	CorrelationID string
}

// RelayOutput carries the reply text to surface to the end user. Reply
// is never empty: a silent acknowledgement from the automation flow is
// replaced with PlaceholderReply.
type RelayOutput struct {
	Reply string
}

// RelayService validates inbound submissions and forwards them to the
// automation webhook. It holds no per-request state.
type RelayService struct {
	webhook WebhookCaller
	logger  *slog.Logger
}

// NewRelayService creates a RelayService. A nil logger falls back to
// slog.Default.
func NewRelayService(webhook WebhookCaller, logger *slog.Logger) (*RelayService, error) {
	if webhook == nil {
		return nil, errors.New("usecase: webhook caller must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayService{
		webhook: webhook,
		logger:  logger.With("component", "relay"),
	}, nil
}

// Relay forwards one user message to the automation endpoint and
// returns the reply. Validation failures and webhook failures are
// reported as *Error values whose Code picks the response status at
// the boundary.
func (s *RelayService) Relay(ctx context.Context, in RelayInput) (RelayOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		metrics.RelayRequests.WithLabelValues("invalid_input").Inc()
		return RelayOutput{}, newError(ErrorInvalidInput, "missing_message", nil)
	}
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		metrics.RelayRequests.WithLabelValues("invalid_input").Inc()
		return RelayOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	start := time.Now()
	reply, err := s.webhook.Send(ctx, message, userID, in.CorrelationID)
	metrics.WebhookDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return RelayOutput{}, s.classifyWebhookError(in.CorrelationID, err)
	}

	if reply == "" {
		reply = PlaceholderReply
	}
	metrics.RelayRequests.WithLabelValues("success").Inc()
	s.logger.Debug("relay completed", "user_id", userID, "reply_chars", len(reply))
	return RelayOutput{Reply: reply}, nil
}

// classifyWebhookError maps a webhook failure onto the error taxonomy.
// Upstream detail stays in the log; the caller only sees the code and
// reason.
func (s *RelayService) classifyWebhookError(correlationID string, err error) error {
	var statusErr *automation.HTTPStatusError
	switch {
	case errors.Is(err, automation.ErrSecretUnavailable):
		metrics.RelayRequests.WithLabelValues("config_error").Inc()
		s.logger.Error("webhook secret unresolved",
			"correlation_id", correlationID, "error", err)
		return newError(ErrorConfig, "webhook_secret_missing", err)
	case errors.As(err, &statusErr):
		metrics.RelayRequests.WithLabelValues("upstream_error").Inc()
		s.logger.Error("automation webhook rejected request",
			"correlation_id", correlationID,
			"status", statusErr.StatusCode,
			"body", statusErr.Body)
		return newError(ErrorUpstream, "webhook_error", err)
	case errors.Is(err, automation.ErrMalformedResponse):
		metrics.RelayRequests.WithLabelValues("upstream_error").Inc()
		s.logger.Error("automation webhook returned undecodable body",
			"correlation_id", correlationID, "error", err)
		return newError(ErrorUpstream, "webhook_malformed_response", err)
	default:
		metrics.RelayRequests.WithLabelValues("upstream_error").Inc()
		s.logger.Error("automation webhook unreachable",
			"correlation_id", correlationID, "error", err)
		return newError(ErrorUpstream, "webhook_unreachable", err)
	}
}
