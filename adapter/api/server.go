// Package api provides the HTTP API for escrowly.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/felixgeelhaar/escrowly/internal/engine/sdk"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	handler *EscrowHandler
	health  *observability.HealthRegistry
	auth    *Authenticator
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		CORSOrigins:  []string{"*"},
	}
}

// NewServer creates a new API server. health may be nil.
func NewServer(cfg ServerConfig, handler *EscrowHandler, auth *Authenticator, health *observability.HealthRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if health == nil {
		health = observability.NewHealthRegistry()
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		handler: handler,
		health:  health,
		auth:    auth,
	}
	s.registerRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      c.Handler(s.withRequestContext(s.mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	authed := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, s.auth.Middleware(fn))
	}

	// Priority
	authed("GET /api/v1/priority/top", s.handler.GetTopTask)
	authed("GET /api/v1/priority/ranked", s.handler.ListRanked)
	authed("GET /api/v1/priority/{projectID}/explain", s.handler.ExplainPriority)

	// Projects
	authed("GET /api/v1/projects", s.handler.ListProjects)
	authed("POST /api/v1/projects", s.handler.SaveProject)
	authed("GET /api/v1/projects/{projectID}", s.handler.GetProject)

	// Points
	authed("GET /api/v1/points/balance", s.handler.GetBalance)
	authed("GET /api/v1/points/transactions", s.handler.ListTransactions)
	authed("POST /api/v1/points/transactions", s.handler.RecordTransaction)
}

// withRequestContext tags each request with request and correlation IDs
// and logs its completion.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := observability.NewRequestContext(r.Context(), r.Header.Get("X-Correlation-ID"))
		w.Header().Set("X-Request-ID", observability.RequestIDFromContext(ctx))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.DebugContext(ctx, "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			observability.DurationKey, time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// handleHealth reports dependency health; 503 when a required check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting escrowly API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down escrowly API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// writeAPIError writes a typed API error.
func writeAPIError(w http.ResponseWriter, apiErr *APIError) {
	writeJSON(w, apiErr.Status, map[string]string{
		"error":   http.StatusText(apiErr.Status),
		"code":    apiErr.Code,
		"message": apiErr.Message,
	})
}

// APIError represents an API error.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common API errors
var (
	ErrBadRequest = &APIError{
		Status:  http.StatusBadRequest,
		Code:    "bad_request",
		Message: "Invalid request",
	}
	ErrNotFound = &APIError{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: "Resource not found",
	}
	ErrConflict = &APIError{
		Status:  http.StatusConflict,
		Code:    "insufficient_points",
		Message: "Insufficient points",
	}
	ErrForbidden = &APIError{
		Status:  http.StatusForbidden,
		Code:    "forbidden",
		Message: "Not a participant of this project",
	}
	ErrProjectClosed = &APIError{
		Status:  http.StatusConflict,
		Code:    "project_closed",
		Message: "Project is closed",
	}
	ErrUnavailable = &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "engine_unavailable",
		Message: "Priority engine unavailable",
	}
	ErrInternalServer = &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "Internal server error",
	}
)

// validationErrors are reported back to the caller verbatim.
var validationErrors = []error{
	domain.ErrInvalidStatus,
	domain.ErrInvalidRole,
	domain.ErrEmptyTitle,
	domain.ErrInvalidBudget,
	domain.ErrInvalidScore,
	domain.ErrInvalidAmount,
	domain.ErrInvalidTransactionType,
}

// toAPIError maps an application error onto an API error.
func toAPIError(err error) *APIError {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		return &APIError{Status: ErrNotFound.Status, Code: ErrNotFound.Code, Message: domain.ErrProjectNotFound.Error()}
	case errors.Is(err, domain.ErrInsufficientPoints):
		return ErrConflict
	case errors.Is(err, domain.ErrNotParticipant):
		return ErrForbidden
	case errors.Is(err, domain.ErrProjectClosed):
		return ErrProjectClosed
	case errors.Is(err, sdk.ErrCircuitOpen), errors.Is(err, sdk.ErrTimeout):
		return ErrUnavailable
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return &APIError{Status: ErrBadRequest.Status, Code: ErrBadRequest.Code, Message: target.Error()}
		}
	}
	return ErrInternalServer
}
