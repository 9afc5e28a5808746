// Package sdk defines the contract for escrowly's pluggable engines.
// An engine scores and orders marketplace work for a viewer; the built-in
// escrow engine is one implementation and others can be registered beside it.
package sdk

import (
	"context"
)

// EngineType identifies the type of engine.
type EngineType string

const (
	EngineTypePriority EngineType = "priority"
)

// String returns the string representation of the engine type.
func (t EngineType) String() string {
	return string(t)
}

// IsValid checks if the engine type is valid.
func (t EngineType) IsValid() bool {
	return t == EngineTypePriority
}

// Engine is the base interface all engines must implement.
type Engine interface {
	// Metadata returns engine identification and capabilities.
	Metadata() EngineMetadata

	// Type returns the engine type.
	Type() EngineType

	// ConfigSchema describes the tunable settings and their defaults.
	ConfigSchema() ConfigSchema

	// Initialize applies configuration. It is called once before first use.
	Initialize(ctx context.Context, config EngineConfig) error

	// HealthCheck returns the current health status of the engine.
	HealthCheck(ctx context.Context) HealthStatus

	// Shutdown releases resources.
	Shutdown(ctx context.Context) error
}

// EngineFactory creates engine instances on first use.
type EngineFactory func() (Engine, error)
