// Package runtime runs engine operations behind per-engine circuit breakers
// and records call metrics.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/escrowly/internal/engine/registry"
	"github.com/felixgeelhaar/escrowly/internal/engine/sdk"
	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/sony/gobreaker/v2"
)

// Operation names recorded in metrics.
const (
	OpCalculatePriority = "calculate_priority"
	OpBatchCalculate    = "batch_calculate"
	OpSelectTop         = "select_top"
	OpExplainFactors    = "explain_factors"
)

// Executor manages engine execution with circuit breakers and metrics.
type Executor struct {
	registry *registry.Registry
	metrics  *MetricsCollector
	logger   *slog.Logger
	config   ExecutorConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// ExecutorConfig configures the executor behavior.
type ExecutorConfig struct {
	CircuitBreakerEnabled bool

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that trips the breaker.
	FailureThreshold uint32

	// CallTimeout bounds each engine call (0 = no bound).
	CallTimeout time.Duration
}

// DefaultExecutorConfig returns a sensible default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		CircuitBreakerEnabled: true,
		MaxRequests:           3,
		Interval:              10 * time.Second,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		CallTimeout:           10 * time.Second,
	}
}

// NewExecutor creates a new engine executor.
func NewExecutor(reg *registry.Registry, metrics *MetricsCollector, logger *slog.Logger, config ExecutorConfig) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetricsCollector()
	}
	return &Executor{
		registry: reg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		metrics:  metrics,
		logger:   logger,
		config:   config,
	}
}

func (e *Executor) breaker(engineID string) *gobreaker.CircuitBreaker[any] {
	if !e.config.CircuitBreakerEnabled {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, exists := e.breakers[engineID]; exists {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        engineID,
		MaxRequests: e.config.MaxRequests,
		Interval:    e.config.Interval,
		Timeout:     e.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= e.config.FailureThreshold
		},
		// A caller giving up is not an engine fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Info("circuit breaker state changed",
				"engine_id", name,
				"from", from.String(),
				"to", to.String(),
			)
			e.metrics.RecordCircuitBreakerChange(name, to.String())
		},
	}

	cb := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[engineID] = cb
	return cb
}

// execute runs fn on the named priority engine with breaker protection.
func (e *Executor) execute(ctx context.Context, engineID string, viewer types.Viewer, operation string, fn func(types.PriorityEngine, *sdk.ExecutionContext) (any, error)) (any, error) {
	engine, err := e.registry.GetPriority(ctx, engineID)
	if err != nil {
		return nil, err
	}

	if e.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.CallTimeout)
		defer cancel()
	}

	execCtx := sdk.NewExecutionContext(ctx, viewer.ID, engineID).
		WithLogger(e.logger).
		WithMetrics(e.metrics)

	start := time.Now()
	call := func() (any, error) {
		return fn(engine, execCtx)
	}

	var result any
	if cb := e.breaker(engineID); cb != nil {
		result, err = cb.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			e.metrics.RecordCircuitOpen(engineID)
			return nil, sdk.NewEngineError(engineID, operation, sdk.ErrCircuitOpen)
		}
	} else {
		result, err = call()
	}

	e.metrics.RecordOperation(engineID, operation, time.Since(start), err)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		if timedOut {
			err = fmt.Errorf("%w: %w", sdk.ErrTimeout, err)
		}
		return nil, sdk.NewExecutionError(engineID, execCtx.RequestID, operation, err, timedOut)
	}
	return result, nil
}

// ExecutePriority scores a single input.
func (e *Executor) ExecutePriority(ctx context.Context, engineID string, viewer types.Viewer, input types.PriorityInput) (*types.PriorityOutput, error) {
	result, err := e.execute(ctx, engineID, viewer, OpCalculatePriority, func(engine types.PriorityEngine, ec *sdk.ExecutionContext) (any, error) {
		return engine.CalculatePriority(ec, viewer, input)
	})
	if err != nil {
		return nil, err
	}
	out, _ := result.(*types.PriorityOutput)
	return out, nil
}

// ExecuteBatchPriority scores and orders all inputs.
func (e *Executor) ExecuteBatchPriority(ctx context.Context, engineID string, viewer types.Viewer, inputs []types.PriorityInput) ([]types.PriorityOutput, error) {
	result, err := e.execute(ctx, engineID, viewer, OpBatchCalculate, func(engine types.PriorityEngine, ec *sdk.ExecutionContext) (any, error) {
		return engine.BatchCalculate(ec, viewer, inputs)
	})
	if err != nil {
		return nil, err
	}
	outs, _ := result.([]types.PriorityOutput)
	return outs, nil
}

// ExecuteSelectTop picks the top actionable input. A nil output means none.
func (e *Executor) ExecuteSelectTop(ctx context.Context, engineID string, viewer types.Viewer, inputs []types.PriorityInput) (*types.PriorityOutput, error) {
	result, err := e.execute(ctx, engineID, viewer, OpSelectTop, func(engine types.PriorityEngine, ec *sdk.ExecutionContext) (any, error) {
		return engine.SelectTop(ec, viewer, inputs)
	})
	if err != nil {
		return nil, err
	}
	out, _ := result.(*types.PriorityOutput)
	return out, nil
}

// ExecuteExplain breaks down a single input's score.
func (e *Executor) ExecuteExplain(ctx context.Context, engineID string, viewer types.Viewer, input types.PriorityInput) (*types.PriorityExplanation, error) {
	result, err := e.execute(ctx, engineID, viewer, OpExplainFactors, func(engine types.PriorityEngine, ec *sdk.ExecutionContext) (any, error) {
		return engine.ExplainFactors(ec, viewer, input)
	})
	if err != nil {
		return nil, err
	}
	out, _ := result.(*types.PriorityExplanation)
	return out, nil
}

// HealthCheck checks the health of an engine.
func (e *Executor) HealthCheck(ctx context.Context, engineID string) (sdk.HealthStatus, error) {
	engine, err := e.registry.Get(ctx, engineID)
	if err != nil {
		return sdk.NewHealthStatus(false, err.Error()), err
	}
	return engine.HealthCheck(ctx), nil
}

// Metrics returns the collector backing this executor.
func (e *Executor) Metrics() *MetricsCollector {
	return e.metrics
}

// CircuitBreakerState returns the breaker state for an engine, or "none".
func (e *Executor) CircuitBreakerState(engineID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	cb := e.breakers[engineID]
	if cb == nil {
		return "none"
	}
	return cb.State().String()
}

// ResetCircuitBreaker drops the breaker for an engine so the next call starts closed.
func (e *Executor) ResetCircuitBreaker(engineID string) {
	e.mu.Lock()
	delete(e.breakers, engineID)
	e.mu.Unlock()
	e.logger.Info("circuit breaker reset", "engine_id", engineID)
}
