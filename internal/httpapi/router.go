// Package httpapi serves the relay contract over a plain HTTP server
// for deployments that run the relay as a long-lived process instead
// of behind API Gateway. The wire contract is identical to the Lambda
// boundary.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/usecase"
)

const defaultMaxBodyBytes = 64 << 10

type relayUseCase interface {
	Relay(ctx context.Context, in usecase.RelayInput) (usecase.RelayOutput, error)
}

// Server holds the shared dependencies of the HTTP handlers.
type Server struct {
	relay        relayUseCase
	logger       *slog.Logger
	maxBodyBytes int64
}

type Option func(*Server)

func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func NewServer(relay relayUseCase, logger *slog.Logger, opts ...Option) (*Server, error) {
	if relay == nil {
		return nil, errors.New("httpapi: relay use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		relay:        relay,
		logger:       logger.With("component", "httpapi"),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Routes builds the router. CORS is wide open: browser dashboards call
// the relay from arbitrary origins and must be able to read failure
// responses too.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
		ExposedHeaders: []string{"X-Correlation-Id"},
		MaxAge:         300,
	}))
	r.Use(recoverJSON(s.logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.handleHealth)

	r.Post("/", s.handleRelay)
	r.Options("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, domain.RelayError{Error: "Method not allowed"})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	correlationID := r.Header.Get("X-Correlation-Id")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	w.Header().Set("X-Correlation-Id", correlationID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, domain.RelayError{Error: "Request body too large"})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, domain.RelayError{Error: "Missing required fields"})
		return
	}

	var req domain.RelayRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, domain.RelayError{Error: "Missing required fields"})
		return
	}

	out, err := s.relay.Relay(r.Context(), usecase.RelayInput{
		Message:       req.Message,
		UserID:        req.UserID,
		CorrelationID: correlationID,
	})
	if err != nil {
		s.writeError(w, correlationID, err)
		return
	}

	s.writeJSON(w, http.StatusOK, domain.RelayResponse{Success: true, Response: out.Reply})
}

// writeError mirrors the Lambda boundary's status mapping. Config and
// upstream failures reuse the success envelope with success=false so
// chat clients can render them inline.
func (s *Server) writeError(w http.ResponseWriter, correlationID string, err error) {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		switch ucErr.Code {
		case usecase.ErrorInvalidInput:
			s.writeJSON(w, http.StatusBadRequest, domain.RelayError{Error: "Missing required fields"})
			return
		case usecase.ErrorConfig:
			s.writeJSON(w, http.StatusInternalServerError, domain.RelayResponse{
				Success: false, Response: "Service configuration error. Please contact support.",
			})
			return
		case usecase.ErrorUpstream:
			s.writeJSON(w, http.StatusBadGateway, domain.RelayResponse{
				Success: false, Response: "Failed to process your message. Please try again.",
			})
			return
		}
	}

	s.logger.Error("unexpected relay failure",
		"correlation_id", correlationID, "error", err)
	s.writeJSON(w, http.StatusInternalServerError, domain.RelayError{
		Error: "Internal server error", Details: err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("write response", "error", err)
	}
}
