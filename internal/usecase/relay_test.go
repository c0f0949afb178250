package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/integrations/automation"
)

type mockWebhook struct {
	reply string
	err   error

	calls           int
	lastMessage     string
	lastUserID      string
	lastCorrelation string
}

func (m *mockWebhook) Send(_ context.Context, message, userID, correlationID string) (string, error) {
	m.calls++
	m.lastMessage = message
	m.lastUserID = userID
	m.lastCorrelation = correlationID
	return m.reply, m.err
}

func newRelayService(t *testing.T, webhook WebhookCaller) *RelayService {
	t.Helper()
	svc, err := NewRelayService(webhook, nil)
	require.NoError(t, err)
	return svc
}

func expectRelayError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewRelayService_ValidatesDependencies(t *testing.T) {
	_, err := NewRelayService(nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestRelay_HappyPath(t *testing.T) {
	webhook := &mockWebhook{reply: "All set!"}
	svc := newRelayService(t, webhook)

	out, err := svc.Relay(context.Background(), RelayInput{
		Message:       "  hello  ",
		UserID:        " user-7 ",
		CorrelationID: "corr-123",
	})
	require.NoError(t, err)
	require.Equal(t, "All set!", out.Reply)
	require.Equal(t, 1, webhook.calls)
	require.Equal(t, "hello", webhook.lastMessage)
	require.Equal(t, "user-7", webhook.lastUserID)
	require.Equal(t, "corr-123", webhook.lastCorrelation)
}

func TestRelay_MissingMessage(t *testing.T) {
	webhook := &mockWebhook{}
	svc := newRelayService(t, webhook)

	_, err := svc.Relay(context.Background(), RelayInput{Message: "   ", UserID: "user-7"})
	expectRelayError(t, err, ErrorInvalidInput, "missing_message")
	require.Zero(t, webhook.calls)
}

func TestRelay_MissingUserID(t *testing.T) {
	webhook := &mockWebhook{}
	svc := newRelayService(t, webhook)

	_, err := svc.Relay(context.Background(), RelayInput{Message: "hello"})
	expectRelayError(t, err, ErrorInvalidInput, "missing_user_id")
	require.Zero(t, webhook.calls)
}

func TestRelay_EmptyReplyGetsPlaceholder(t *testing.T) {
	svc := newRelayService(t, &mockWebhook{reply: ""})

	out, err := svc.Relay(context.Background(), RelayInput{Message: "hello", UserID: "user-7"})
	require.NoError(t, err)
	require.Equal(t, PlaceholderReply, out.Reply)
}

func TestRelay_SecretUnavailable(t *testing.T) {
	webhook := &mockWebhook{err: automation.ErrSecretUnavailable}
	svc := newRelayService(t, webhook)

	_, err := svc.Relay(context.Background(), RelayInput{Message: "hello", UserID: "user-7"})
	expectRelayError(t, err, ErrorConfig, "webhook_secret_missing")
	require.ErrorIs(t, err, automation.ErrSecretUnavailable)
}

func TestRelay_UpstreamStatus(t *testing.T) {
	webhook := &mockWebhook{err: &automation.HTTPStatusError{
		StatusCode: 500,
		URL:        "https://automation.lyra-app.io/webhook/assistant",
		Body:       `{"message":"workflow failed"}`,
	}}
	svc := newRelayService(t, webhook)

	_, err := svc.Relay(context.Background(), RelayInput{Message: "hello", UserID: "user-7"})
	expectRelayError(t, err, ErrorUpstream, "webhook_error")
}

func TestRelay_MalformedUpstreamResponse(t *testing.T) {
	webhook := &mockWebhook{err: automation.ErrMalformedResponse}
	svc := newRelayService(t, webhook)

	_, err := svc.Relay(context.Background(), RelayInput{Message: "hello", UserID: "user-7"})
	expectRelayError(t, err, ErrorUpstream, "webhook_malformed_response")
}

func TestRelay_TransportFailure(t *testing.T) {
	webhook := &mockWebhook{err: errors.New("dial tcp: connection refused")}
	svc := newRelayService(t, webhook)

	_, err := svc.Relay(context.Background(), RelayInput{Message: "hello", UserID: "user-7"})
	expectRelayError(t, err, ErrorUpstream, "webhook_unreachable")
}
