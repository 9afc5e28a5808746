package priority

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	internalApp "github.com/felixgeelhaar/escrowly/internal/app"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/pkg/config"
)

// setupLocalModeTestApp creates a seeded SQLite-backed app and installs it
// as the global CLI app.
func setupLocalModeTestApp(t *testing.T) *cli.App {
	t.Helper()
	cfg := &config.Config{
		AppEnv:           "test",
		UserID:           config.DefaultUserID,
		Role:             "client",
		SQLitePath:       filepath.Join(t.TempDir(), "test.db"),
		LedgerBackend:    config.LedgerSQL,
		PriorityEngineID: config.DefaultEngineID,
	}
	container, err := internalApp.NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := cli.NewApp(container)
	_, err = app.SeedDemoDataHandler.Handle(context.Background(), commands.SeedDemoDataCommand{
		ClientID:     app.CurrentUserID,
		ContractorID: uuid.New(),
	})
	require.NoError(t, err)

	cli.SetApp(app)
	t.Cleanup(func() {
		cli.SetApp(nil)
		cli.SetJSONOutput(false)
	})
	return app
}

func run(t *testing.T, cmd interface {
	SetContext(context.Context)
	SetOut(io.Writer)
}, fn func() error) string {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetContext(context.Background())
	cmd.SetOut(&buf)
	require.NoError(t, fn())
	return buf.String()
}

func TestRankCmd_JSONIsSortedByScore(t *testing.T) {
	setupLocalModeTestApp(t)
	cli.SetJSONOutput(true)
	rankLimit = 0

	out := run(t, rankCmd, func() error { return rankCmd.RunE(rankCmd, nil) })

	var ranked []queries.RankedProjectDTO
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.NotEmpty(t, ranked)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Priority.Score, ranked[i].Priority.Score)
	}
}

func TestRankCmd_Limit(t *testing.T) {
	setupLocalModeTestApp(t)
	cli.SetJSONOutput(true)
	rankLimit = 2
	defer func() { rankLimit = 0 }()

	out := run(t, rankCmd, func() error { return rankCmd.RunE(rankCmd, nil) })

	var ranked []queries.RankedProjectDTO
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	assert.Len(t, ranked, 2)
}

func TestTopCmd_MatchesFirstRanked(t *testing.T) {
	app := setupLocalModeTestApp(t)
	viewer, err := app.Viewer()
	require.NoError(t, err)
	ranked, err := app.ListRankedHandler.Handle(context.Background(), queries.ListRankedQuery{ViewerQuery: viewer})
	require.NoError(t, err)
	require.NotEmpty(t, ranked)

	out := run(t, topCmd, func() error { return topCmd.RunE(topCmd, nil) })
	assert.Contains(t, out, ranked[0].Project.Title)
}

func TestExplainCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	viewer, err := app.Viewer()
	require.NoError(t, err)
	ranked, err := app.ListRankedHandler.Handle(context.Background(), queries.ListRankedQuery{ViewerQuery: viewer})
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	top := ranked[0]

	out := run(t, explainCmd, func() error {
		return explainCmd.RunE(explainCmd, []string{top.Project.ID.String()})
	})
	assert.Contains(t, out, "Score")
	assert.Contains(t, out, string(top.Priority.Urgency))

	err = explainCmd.RunE(explainCmd, []string{"not-a-uuid"})
	assert.Error(t, err)
}
