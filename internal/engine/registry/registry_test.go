package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/felixgeelhaar/escrowly/internal/engine/builtin"
	"github.com/felixgeelhaar/escrowly/internal/engine/sdk"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEngine is a minimal non-priority engine.
type mockEngine struct {
	id          string
	initialized sdk.EngineConfig
	initErr     error
	shutdownErr error
	shutdowns   int
}

func (m *mockEngine) Metadata() sdk.EngineMetadata {
	return sdk.EngineMetadata{ID: m.id, Name: "Mock", Version: "1.0.0", MinAPIVersion: "1.0.0"}
}

func (m *mockEngine) Type() sdk.EngineType { return sdk.EngineTypePriority }

func (m *mockEngine) ConfigSchema() sdk.ConfigSchema { return sdk.NewConfigSchema("mock", "") }

func (m *mockEngine) Initialize(_ context.Context, config sdk.EngineConfig) error {
	m.initialized = config
	return m.initErr
}

func (m *mockEngine) HealthCheck(context.Context) sdk.HealthStatus {
	return sdk.NewHealthStatus(true, "mock")
}

func (m *mockEngine) Shutdown(context.Context) error {
	m.shutdowns++
	return m.shutdownErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterBuiltin(t *testing.T) {
	reg := NewRegistry(testLogger())
	engine := builtin.NewEscrowPriorityEngine()

	require.NoError(t, reg.RegisterBuiltin(engine))

	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Has(builtin.EscrowPriorityEngineID))
	status, err := reg.Status(builtin.EscrowPriorityEngineID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)

	assert.ErrorIs(t, reg.RegisterBuiltin(engine), sdk.ErrEngineAlreadyExists)
}

func TestRegisterBuiltin_InvalidMetadata(t *testing.T) {
	reg := NewRegistry(testLogger())

	err := reg.RegisterBuiltin(&mockEngine{id: ""})

	assert.Error(t, err)
	assert.Equal(t, 0, reg.Count())
}

func TestGetPriority(t *testing.T) {
	reg := NewRegistry(testLogger())
	require.NoError(t, reg.RegisterBuiltin(builtin.NewEscrowPriorityEngine()))

	engine, err := reg.GetPriority(context.Background(), builtin.EscrowPriorityEngineID)
	require.NoError(t, err)
	assert.Equal(t, builtin.EscrowPriorityEngineID, engine.Metadata().ID)

	require.NoError(t, reg.RegisterBuiltin(&mockEngine{id: "mock.engine"}))
	_, err = reg.GetPriority(context.Background(), "mock.engine")
	assert.ErrorContains(t, err, "not a priority engine")

	_, err = reg.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sdk.ErrEngineNotFound)
}

func TestRegisterFactory_LoadsLazily(t *testing.T) {
	reg := NewRegistry(testLogger())
	mock := &mockEngine{id: "lazy.engine"}
	calls := 0
	cfg := sdk.NewEngineConfig("lazy.engine", uuid.Nil, map[string]any{"k": 1})

	require.NoError(t, reg.RegisterFactory("lazy.engine", sdk.EngineTypePriority, func() (sdk.Engine, error) {
		calls++
		return mock, nil
	}, cfg))

	status, _ := reg.Status("lazy.engine")
	assert.Equal(t, StatusUnloaded, status)

	for range 2 {
		engine, err := reg.Get(context.Background(), "lazy.engine")
		require.NoError(t, err)
		assert.Same(t, mock, engine)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, mock.initialized.GetInt("k"))
}

func TestRegisterFactory_FailureIsSticky(t *testing.T) {
	reg := NewRegistry(testLogger())
	boom := errors.New("boom")
	require.NoError(t, reg.RegisterFactory("bad.engine", sdk.EngineTypePriority, func() (sdk.Engine, error) {
		return &mockEngine{id: "bad.engine", initErr: boom}, nil
	}, sdk.EngineConfig{}))

	_, err := reg.Get(context.Background(), "bad.engine")
	assert.ErrorIs(t, err, boom)

	status, _ := reg.Status("bad.engine")
	assert.Equal(t, StatusFailed, status)

	_, err = reg.Get(context.Background(), "bad.engine")
	assert.ErrorIs(t, err, boom)
}

func TestRegisterFactory_Validation(t *testing.T) {
	reg := NewRegistry(testLogger())

	assert.Error(t, reg.RegisterFactory("", sdk.EngineTypePriority, func() (sdk.Engine, error) { return nil, nil }, sdk.EngineConfig{}))
	assert.Error(t, reg.RegisterFactory("x", sdk.EngineTypePriority, nil, sdk.EngineConfig{}))
}

func TestUnregister(t *testing.T) {
	reg := NewRegistry(testLogger())
	require.NoError(t, reg.RegisterBuiltin(builtin.NewEscrowPriorityEngine()))
	require.NoError(t, reg.RegisterFactory("plugin.engine", sdk.EngineTypePriority, func() (sdk.Engine, error) {
		return &mockEngine{id: "plugin.engine"}, nil
	}, sdk.EngineConfig{}))

	assert.Error(t, reg.Unregister(builtin.EscrowPriorityEngineID))
	assert.NoError(t, reg.Unregister("plugin.engine"))
	assert.ErrorIs(t, reg.Unregister("plugin.engine"), sdk.ErrEngineNotFound)
}

func TestListOrderedByID(t *testing.T) {
	reg := NewRegistry(testLogger())
	require.NoError(t, reg.RegisterBuiltin(&mockEngine{id: "z.engine"}))
	require.NoError(t, reg.RegisterBuiltin(&mockEngine{id: "a.engine"}))

	entries := reg.List()

	require.Len(t, entries, 2)
	assert.Equal(t, "a.engine", entries[0].ID)
	assert.Equal(t, "z.engine", entries[1].ID)
	assert.Len(t, reg.ListByType(sdk.EngineTypePriority), 2)
}

func TestShutdownAll(t *testing.T) {
	reg := NewRegistry(testLogger())
	ok := &mockEngine{id: "ok.engine"}
	failing := &mockEngine{id: "failing.engine", shutdownErr: errors.New("stuck")}
	require.NoError(t, reg.RegisterBuiltin(ok))
	require.NoError(t, reg.RegisterBuiltin(failing))

	err := reg.ShutdownAll(context.Background())

	assert.ErrorContains(t, err, "stuck")
	assert.Equal(t, 1, ok.shutdowns)

	_, err = reg.Get(context.Background(), "ok.engine")
	assert.ErrorIs(t, err, sdk.ErrEngineShutdown)

	require.NoError(t, reg.ShutdownAll(context.Background()))
	assert.Equal(t, 1, ok.shutdowns)
}
