// Package handler adapts API Gateway proxy events to the relay use
// case. Every response, the failed ones included, carries the
// permissive CORS header set so browser dashboards on any origin can
// read the outcome.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/usecase"
)

// defaultMaxBodyBytes caps inbound request bodies at 64 KiB.
const defaultMaxBodyBytes = 64 << 10

// relayUseCase is the slice of the relay service the handler needs.
type relayUseCase interface {
	Relay(ctx context.Context, in usecase.RelayInput) (usecase.RelayOutput, error)
}

type relayRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type relayResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Handler struct {
	relay        relayUseCase
	logger       *slog.Logger
	maxBodyBytes int64
}

type Option func(*Handler)

// WithMaxBodyBytes overrides the inbound body cap.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(relay relayUseCase, opts ...Option) (*Handler, error) {
	if relay == nil {
		return nil, errors.New("handler: relay use case must not be nil")
	}
	h := &Handler{
		relay:        relay,
		logger:       slog.Default(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle serves one proxy event. It never returns a non-nil error:
// every failure mode, panics included, is translated into a JSON
// response so API Gateway does not substitute its own CORS-less error
// page.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	correlationID := correlationIDFrom(event.Headers)

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while relaying",
				"correlation_id", correlationID, "panic", r)
			resp = jsonResponse(http.StatusInternalServerError, correlationID,
				errorResponse{Error: "Internal server error", Details: fmt.Sprint(r)})
			err = nil
		}
	}()

	switch event.HTTPMethod {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    baseHeaders(correlationID),
		}, nil
	case http.MethodPost:
	default:
		return jsonResponse(http.StatusMethodNotAllowed, correlationID,
			errorResponse{Error: "Method not allowed"}), nil
	}

	if int64(len(event.Body)) > h.maxBodyBytes {
		return jsonResponse(http.StatusRequestEntityTooLarge, correlationID,
			errorResponse{Error: "Request body too large"}), nil
	}

	// A body that is not a JSON object carries no usable fields, so it
	// gets the same answer as one with the fields blank.
	var req relayRequest
	if jsonErr := json.Unmarshal([]byte(event.Body), &req); jsonErr != nil {
		return jsonResponse(http.StatusBadRequest, correlationID,
			errorResponse{Error: "Missing required fields"}), nil
	}

	out, relayErr := h.relay.Relay(ctx, usecase.RelayInput{
		Message:       req.Message,
		UserID:        req.UserID,
		CorrelationID: correlationID,
	})
	if relayErr != nil {
		return h.responseForError(correlationID, relayErr), nil
	}

	return jsonResponse(http.StatusOK, correlationID,
		relayResponse{Success: true, Response: out.Reply}), nil
}

// responseForError maps use-case failures onto the fixed client-facing
// bodies. Config and upstream failures reuse the success envelope with
// success=false so dashboard clients render them as chat replies.
func (h *Handler) responseForError(correlationID string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		switch ucErr.Code {
		case usecase.ErrorInvalidInput:
			return jsonResponse(http.StatusBadRequest, correlationID,
				errorResponse{Error: "Missing required fields"})
		case usecase.ErrorConfig:
			return jsonResponse(http.StatusInternalServerError, correlationID,
				relayResponse{Success: false, Response: "Service configuration error. Please contact support."})
		case usecase.ErrorUpstream:
			return jsonResponse(http.StatusBadGateway, correlationID,
				relayResponse{Success: false, Response: "Failed to process your message. Please try again."})
		}
	}

	h.logger.Error("unexpected relay failure",
		"correlation_id", correlationID, "error", err)
	return jsonResponse(http.StatusInternalServerError, correlationID,
		errorResponse{Error: "Internal server error", Details: err.Error()})
}

// baseHeaders is the header set present on every response.
func baseHeaders(correlationID string) map[string]string {
	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Authorization, Content-Type, X-Correlation-Id",
	}
	if correlationID != "" {
		headers["X-Correlation-Id"] = correlationID
	}
	return headers
}

func jsonResponse(status int, correlationID string, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}
	headers := baseHeaders(correlationID)
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}

// correlationIDFrom reuses the caller's correlation id when one is
// present, header-name case notwithstanding, and mints one otherwise.
func correlationIDFrom(headers map[string]string) string {
	for name, value := range headers {
		if strings.EqualFold(name, "X-Correlation-Id") && value != "" {
			return value
		}
	}
	return newUUID()
}

var newUUID = uuid.NewString
