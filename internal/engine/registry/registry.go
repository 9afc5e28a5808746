// Package registry keeps track of the engines available to the application
// and owns their lifecycle.
package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/felixgeelhaar/escrowly/internal/engine/sdk"
	"github.com/felixgeelhaar/escrowly/internal/engine/types"
)

// Registry manages engine registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]EngineEntry
	logger  *slog.Logger
}

// EngineEntry holds a registered engine and its state.
type EngineEntry struct {
	ID   string
	Type sdk.EngineType

	// Engine is nil until a factory entry is first requested.
	Engine  sdk.Engine
	Factory sdk.EngineFactory

	// Config is applied with Initialize when a factory entry is loaded.
	Config  sdk.EngineConfig
	Status  EngineStatus
	Error   error
	Builtin bool
}

// EngineStatus represents the current state of an engine.
type EngineStatus string

const (
	StatusUnloaded EngineStatus = "unloaded"
	StatusReady    EngineStatus = "ready"
	StatusFailed   EngineStatus = "failed"
	StatusShutdown EngineStatus = "shutdown"
)

// NewRegistry creates a new engine registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		engines: make(map[string]EngineEntry),
		logger:  logger,
	}
}

// RegisterBuiltin registers an engine instance that is ready for use.
func (r *Registry) RegisterBuiltin(engine sdk.Engine) error {
	metadata := engine.Metadata()
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("register %q: %w", metadata.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[metadata.ID]; exists {
		return sdk.ErrEngineAlreadyExists
	}

	r.engines[metadata.ID] = EngineEntry{
		ID:      metadata.ID,
		Type:    engine.Type(),
		Engine:  engine,
		Status:  StatusReady,
		Builtin: true,
	}

	r.logger.Info("registered built-in engine",
		"engine_id", metadata.ID,
		"type", engine.Type(),
	)
	return nil
}

// RegisterFactory registers an engine that is created and initialized on first use.
func (r *Registry) RegisterFactory(id string, engineType sdk.EngineType, factory sdk.EngineFactory, config sdk.EngineConfig) error {
	if id == "" {
		return errors.New("engine ID is required")
	}
	if factory == nil {
		return errors.New("engine factory is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[id]; exists {
		return sdk.ErrEngineAlreadyExists
	}

	r.engines[id] = EngineEntry{
		ID:      id,
		Type:    engineType,
		Factory: factory,
		Config:  config,
		Status:  StatusUnloaded,
	}

	r.logger.Info("registered engine factory", "engine_id", id)
	return nil
}

// Get returns an engine by ID, loading it if necessary.
func (r *Registry) Get(ctx context.Context, id string) (sdk.Engine, error) {
	r.mu.RLock()
	entry, exists := r.engines[id]
	r.mu.RUnlock()

	if !exists {
		return nil, sdk.ErrEngineNotFound
	}

	switch entry.Status {
	case StatusReady:
		return entry.Engine, nil
	case StatusFailed:
		return nil, entry.Error
	case StatusShutdown:
		return nil, sdk.ErrEngineShutdown
	default:
		return r.load(ctx, id)
	}
}

// GetPriority returns a priority engine by ID.
func (r *Registry) GetPriority(ctx context.Context, id string) (types.PriorityEngine, error) {
	engine, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	priority, ok := engine.(types.PriorityEngine)
	if !ok {
		return nil, fmt.Errorf("engine %s is not a priority engine (type %s)", id, engine.Type())
	}
	return priority, nil
}

func (r *Registry) load(ctx context.Context, id string) (sdk.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.engines[id]
	if entry.Status == StatusReady {
		return entry.Engine, nil
	}

	r.logger.Info("loading engine", "engine_id", id)

	engine, err := entry.Factory()
	if err == nil {
		err = engine.Initialize(ctx, entry.Config)
	}
	if err != nil {
		entry.Status = StatusFailed
		entry.Error = fmt.Errorf("load engine %s: %w", id, err)
		r.engines[id] = entry
		return nil, entry.Error
	}

	entry.Engine = engine
	entry.Status = StatusReady
	entry.Error = nil
	r.engines[id] = entry

	r.logger.Info("engine loaded",
		"engine_id", id,
		"type", engine.Type(),
	)
	return engine, nil
}

// Unregister removes a non-builtin engine.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.engines[id]
	if !exists {
		return sdk.ErrEngineNotFound
	}
	if entry.Builtin {
		return fmt.Errorf("cannot unregister built-in engine %s", id)
	}

	delete(r.engines, id)
	r.logger.Info("unregistered engine", "engine_id", id)
	return nil
}

// List returns all registered engines ordered by ID.
func (r *Registry) List() []EngineEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]EngineEntry, 0, len(r.engines))
	for _, entry := range r.engines {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b EngineEntry) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return entries
}

// ListByType returns all engines of a specific type.
func (r *Registry) ListByType(engineType sdk.EngineType) []EngineEntry {
	var entries []EngineEntry
	for _, entry := range r.List() {
		if entry.Type == engineType {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Has checks if an engine is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.engines[id]
	return exists
}

// Status returns the status of an engine.
func (r *Registry) Status(id string) (EngineStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.engines[id]
	if !exists {
		return "", sdk.ErrEngineNotFound
	}
	return entry.Status, nil
}

// ShutdownAll shuts down all loaded engines.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, entry := range r.engines {
		if entry.Engine == nil || entry.Status != StatusReady {
			continue
		}
		r.logger.Info("shutting down engine", "engine_id", id)
		if err := entry.Engine.Shutdown(ctx); err != nil {
			r.logger.Error("failed to shutdown engine",
				"engine_id", id,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("engine %s: %w", id, err))
		}
		entry.Status = StatusShutdown
		r.engines[id] = entry
	}
	return errors.Join(errs...)
}

// Count returns the number of registered engines.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
