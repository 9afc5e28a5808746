package sdk

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotFound is returned when an engine is not registered.
	ErrEngineNotFound = errors.New("engine not found")

	// ErrEngineAlreadyExists is returned when registering a duplicate engine ID.
	ErrEngineAlreadyExists = errors.New("engine already exists")

	// ErrInvalidConfig is returned when engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEngineShutdown is returned when operating on a shut down engine.
	ErrEngineShutdown = errors.New("engine has been shut down")

	// ErrTimeout is returned when an engine operation times out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// EngineError wraps an error with engine context.
type EngineError struct {
	EngineID  string
	Operation string
	Err       error
}

func (e *EngineError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("engine %s: %s: %v", e.EngineID, e.Operation, e.Err)
	}
	return fmt.Sprintf("engine %s: %v", e.EngineID, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new engine error.
func NewEngineError(engineID, operation string, err error) *EngineError {
	return &EngineError{
		EngineID:  engineID,
		Operation: operation,
		Err:       err,
	}
}

// ConfigValidationError reports a setting that failed validation.
type ConfigValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ConfigValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("config validation failed for %q: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("config validation failed for %q: %s", e.Field, e.Message)
}

// Unwrap lets callers match ErrInvalidConfig.
func (e *ConfigValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigValidationError creates a new configuration validation error.
func NewConfigValidationError(field, message string, value any) *ConfigValidationError {
	return &ConfigValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ExecutionError represents a failure while an engine was running.
type ExecutionError struct {
	EngineID  string
	RequestID string
	Operation string
	Err       error
	Retryable bool
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error in %s (request %s, operation %s): %v",
		e.EngineID, e.RequestID, e.Operation, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new execution error.
func NewExecutionError(engineID, requestID, operation string, err error, retryable bool) *ExecutionError {
	return &ExecutionError{
		EngineID:  engineID,
		RequestID: requestID,
		Operation: operation,
		Err:       err,
		Retryable: retryable,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Retryable
	}
	return false
}

// IsCircuitOpen checks if the error is due to an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
