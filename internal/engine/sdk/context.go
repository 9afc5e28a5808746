package sdk

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext carries per-call state into an engine.
type ExecutionContext struct {
	ctx context.Context

	// UserID is the viewer on whose behalf the engine runs.
	UserID    uuid.UUID
	EngineID  string
	RequestID string
	Logger    *slog.Logger
	Metrics   MetricsRecorder
	StartTime time.Time
}

// NewExecutionContext creates a new execution context.
func NewExecutionContext(ctx context.Context, userID uuid.UUID, engineID string) *ExecutionContext {
	return &ExecutionContext{
		ctx:       ctx,
		UserID:    userID,
		EngineID:  engineID,
		RequestID: uuid.New().String(),
		Logger:    slog.Default(),
		Metrics:   noopMetricsRecorder{},
		StartTime: time.Now(),
	}
}

// Context returns the underlying context.Context.
func (ec *ExecutionContext) Context() context.Context {
	return ec.ctx
}

// Err returns the context error, if any.
func (ec *ExecutionContext) Err() error {
	return ec.ctx.Err()
}

// WithLogger sets the logger, tagging it with the execution identifiers.
func (ec *ExecutionContext) WithLogger(logger *slog.Logger) *ExecutionContext {
	ec.Logger = logger.With(
		"engine_id", ec.EngineID,
		"user_id", ec.UserID.String(),
		"request_id", ec.RequestID,
	)
	return ec
}

// WithMetrics sets a custom metrics recorder for this context.
func (ec *ExecutionContext) WithMetrics(metrics MetricsRecorder) *ExecutionContext {
	ec.Metrics = metrics
	return ec
}

// MetricsRecorder lets engines record their own metrics.
type MetricsRecorder interface {
	Counter(name string, value int64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Counter(string, int64, ...string)        {}
func (noopMetricsRecorder) Timing(string, time.Duration, ...string) {}
