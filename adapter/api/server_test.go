package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/escrowly/internal/app"
	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/pkg/config"
)

const testSecret = "test-secret"

type testEnv struct {
	container *app.Container
	viewer    queries.ViewerQuery
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AppEnv:           "test",
		UserID:           config.DefaultUserID,
		Role:             "client",
		SQLitePath:       filepath.Join(t.TempDir(), "api.db"),
		LedgerBackend:    config.LedgerSQL,
		PriorityEngineID: config.DefaultEngineID,
	}
	c, err := app.NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	viewer := c.Viewer()
	_, err = c.SeedDemoDataHandler.Handle(context.Background(), commands.SeedDemoDataCommand{
		ClientID:       viewer.ViewerID,
		ContractorID:   uuid.New(),
		OpeningBalance: 10000,
	})
	require.NoError(t, err)

	return &testEnv{container: c, viewer: viewer}
}

// server builds an API handler; an empty secret disables token checks.
func (e *testEnv) server(secret string, fallback queries.ViewerQuery) http.Handler {
	handler := NewEscrowHandler(EscrowHandlerConfigFrom(e.container))
	s := NewServer(DefaultServerConfig(), handler, NewAuthenticator(secret, fallback), e.container.Health, e.container.Logger)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type rankedResponse struct {
	Projects []queries.RankedProjectDTO `json:"projects"`
	Total    int                        `json:"total"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	rec := do(t, h, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, checks, "database")
}

func TestPriority_RankedAndTop(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	rec := do(t, h, http.MethodGet, "/api/v1/priority/ranked", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := decode[rankedResponse](t, rec)
	require.NotEmpty(t, ranked.Projects)
	assert.Equal(t, len(ranked.Projects), ranked.Total)
	for i := 1; i < len(ranked.Projects); i++ {
		assert.GreaterOrEqual(t, ranked.Projects[i-1].Priority.Score, ranked.Projects[i].Priority.Score)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/priority/ranked?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[rankedResponse](t, rec).Total)

	rec = do(t, h, http.MethodGet, "/api/v1/priority/top", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	top := decode[queries.TopTaskResult](t, rec)
	assert.Equal(t, ranked.Projects[0].Project.ID, top.Project.ID)
}

func TestPriority_TopWithNothingActionable(t *testing.T) {
	env := newTestEnv(t)
	stranger := queries.ViewerQuery{ViewerID: uuid.New(), Role: domain.RoleClient}
	h := env.server("", stranger)

	rec := do(t, h, http.MethodGet, "/api/v1/priority/top", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestPriority_RankedBadRequests(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	tests := []struct {
		name   string
		target string
	}{
		{"negative limit", "/api/v1/priority/ranked?limit=-1"},
		{"garbage limit", "/api/v1/priority/ranked?limit=ten"},
		{"unknown role", "/api/v1/priority/ranked?role=admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, nil, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPriority_Explain(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	ranked := decode[rankedResponse](t, do(t, h, http.MethodGet, "/api/v1/priority/ranked", nil, nil))
	require.NotEmpty(t, ranked.Projects)
	first := ranked.Projects[0]

	rec := do(t, h, http.MethodGet, "/api/v1/priority/"+first.Project.ID.String()+"/explain", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, first.Priority.Score, body["total_score"])
	assert.NotEmpty(t, body["algorithm"])

	rec = do(t, h, http.MethodGet, "/api/v1/priority/not-a-uuid/explain", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/priority/"+uuid.NewString()+"/explain", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[map[string]string](t, rec)["code"])
}

// expiredExecutor runs every call with a deadline that has already passed.
type expiredExecutor struct {
	queries.PriorityExecutor
}

func (e expiredExecutor) ExecuteBatchPriority(ctx context.Context, engineID string, viewer types.Viewer, inputs []types.PriorityInput) ([]types.PriorityOutput, error) {
	ctx, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
	defer cancel()
	return e.PriorityExecutor.ExecuteBatchPriority(ctx, engineID, viewer, inputs)
}

func TestPriority_EngineTimeoutIsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	cfg := EscrowHandlerConfigFrom(env.container)
	cfg.ListRanked = queries.NewListRankedHandler(env.container.Projects, expiredExecutor{env.container.Executor}, env.container.EngineID)
	s := NewServer(DefaultServerConfig(), NewEscrowHandler(cfg), NewAuthenticator("", env.viewer), env.container.Health, env.container.Logger)

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/priority/ranked", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "engine_unavailable", decode[map[string]string](t, rec)["code"])
}

func TestProjects_CreateUpdateAndGet(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	rec := do(t, h, http.MethodPost, "/api/v1/projects", map[string]any{
		"title":  "Logo refresh",
		"budget": 8000,
		"tags":   []string{"design"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[queries.ProjectDTO](t, rec)
	assert.Equal(t, env.viewer.ViewerID, created.ClientID)
	assert.Equal(t, domain.StatusOpenForProposals.String(), created.Status)

	rec = do(t, h, http.MethodPost, "/api/v1/projects", map[string]any{
		"id":     created.ID,
		"status": "inProgress",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/projects/"+created.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[queries.ProjectDTO](t, rec)
	assert.Equal(t, "Logo refresh", got.Title)
	assert.Equal(t, domain.StatusInProgress.String(), got.Status)
	assert.Equal(t, int64(8000), got.Budget)
}

func TestProjects_WritesRequireParticipant(t *testing.T) {
	env := newTestEnv(t)
	owner := env.server("", env.viewer)
	stranger := env.server("", queries.ViewerQuery{ViewerID: uuid.New(), Role: domain.RoleClient})

	ranked := decode[rankedResponse](t, do(t, owner, http.MethodGet, "/api/v1/priority/ranked", nil, nil))
	require.NotEmpty(t, ranked.Projects)
	target := ranked.Projects[0].Project

	rec := do(t, stranger, http.MethodPost, "/api/v1/projects", map[string]any{
		"id":    target.ID,
		"title": "hijacked",
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode[map[string]string](t, rec)["code"])

	rec = do(t, stranger, http.MethodGet, "/api/v1/priority/"+target.ID.String()+"/explain", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	got := decode[queries.ProjectDTO](t, do(t, owner, http.MethodGet, "/api/v1/projects/"+target.ID.String(), nil, nil))
	assert.Equal(t, target.Title, got.Title)

	completed := decode[struct {
		Projects []queries.ProjectDTO `json:"projects"`
	}](t, do(t, owner, http.MethodGet, "/api/v1/projects?status=completed", nil, nil))
	require.NotEmpty(t, completed.Projects)

	rec = do(t, owner, http.MethodPost, "/api/v1/points/transactions", map[string]any{
		"type":       "escrow_fund",
		"amount":     100,
		"project_id": completed.Projects[0].ID,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "project_closed", decode[map[string]string](t, rec)["code"])
}

func TestProjects_Validation(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"empty title", map[string]any{"title": "  "}, http.StatusBadRequest},
		{"bad status", map[string]any{"title": "x", "status": "archived"}, http.StatusBadRequest},
		{"negative budget", map[string]any{"title": "x", "budget": -1}, http.StatusBadRequest},
		{"unknown project", map[string]any{"id": uuid.New(), "title": "x"}, http.StatusNotFound},
		{"not json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/projects", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestProjects_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	rec := do(t, h, http.MethodGet, "/api/v1/projects?status=inProgress&mine=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Projects []queries.ProjectDTO `json:"projects"`
	}](t, rec)
	require.NotEmpty(t, body.Projects)
	for _, p := range body.Projects {
		assert.Equal(t, domain.StatusInProgress.String(), p.Status)
		assert.Equal(t, env.viewer.ViewerID, p.ClientID)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/projects?status=archived", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoints_RecordAndBalance(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	rec := do(t, h, http.MethodPost, "/api/v1/points/transactions", map[string]any{
		"type":   "deposit",
		"amount": 2500,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[domain.Transaction](t, rec)
	assert.Equal(t, domain.TxConfirmed, tx.Status)
	assert.NotEmpty(t, tx.TxHash)

	rec = do(t, h, http.MethodGet, "/api/v1/points/balance", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(12500), decode[queries.BalanceResult](t, rec).Balance)

	rec = do(t, h, http.MethodPost, "/api/v1/points/transactions", map[string]any{
		"type":   "withdraw",
		"amount": 1_000_000,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_points", decode[map[string]string](t, rec)["code"])

	rec = do(t, h, http.MethodPost, "/api/v1/points/transactions", map[string]any{
		"type":   "gift",
		"amount": 10,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/points/transactions?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		Transactions []domain.Transaction `json:"transactions"`
	}](t, rec)
	require.Len(t, history.Transactions, 1)
	assert.Equal(t, tx.ID, history.Transactions[0].ID, "newest first by default")
}

func TestAuth_BearerToken(t *testing.T) {
	env := newTestEnv(t)
	h := env.server(testSecret, queries.ViewerQuery{})

	rec := do(t, h, http.MethodGet, "/api/v1/points/balance", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := IssueToken("other-secret", env.viewer, time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/v1/points/balance", nil, http.Header{"Authorization": {"Bearer " + forged}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := IssueToken(testSecret, env.viewer, -time.Minute)
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/v1/points/balance", nil, http.Header{"Authorization": {"Bearer " + expired}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := IssueToken(testSecret, env.viewer, time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/v1/points/balance", nil, http.Header{"Authorization": {"Bearer " + token}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10000), decode[queries.BalanceResult](t, rec).Balance)

	// Health stays public.
	rec = do(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseToken_RoundTrip(t *testing.T) {
	viewer := queries.ViewerQuery{ViewerID: uuid.New(), Role: domain.RoleContractor}
	token, err := IssueToken(testSecret, viewer, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, viewer, got)

	_, err = ParseToken(testSecret, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)
	h := env.server("", env.viewer)

	rec := do(t, h, http.MethodOptions, "/api/v1/projects", nil, http.Header{
		"Origin":                        {"https://app.example.com"},
		"Access-Control-Request-Method": {http.MethodPost},
	})
	assert.Less(t, rec.Code, 300)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
