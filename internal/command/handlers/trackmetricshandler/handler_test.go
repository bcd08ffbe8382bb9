package trackmetricshandler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/config"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/pkg/testutil"
	"github.com/unentropy/unentropy-sub001/internal/report"
)

const trackYAML = `
namespace: track-test
metrics:
  - name: answer
    unit: count
    source:
      kind: command
      command: echo 42
storage:
  provider: local
  options:
    path: snapshots
`

func newApp(t *testing.T, yaml string) *di.App {
	t.Helper()
	cfg := &config.Config{
		Command:      constants.ActTrackMetrics,
		WorkDir:      t.TempDir(),
		Branch:       "main",
		Revision:     "abc123",
		OutputFormat: output.FormatJSON,
		Logging:      config.LoggingConfig{Level: "error"},
	}
	if yaml != "" {
		file, err := config.ParseFile("unentropy.yml", []byte(yaml))
		require.NoError(t, err)
		cfg.File = file
	}
	app, err := di.InitializeApp(cfg)
	require.NoError(t, err)
	return app
}

func TestHandler_TrackPersistsSnapshot(t *testing.T) {
	app := newApp(t, trackYAML)

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = (&Handler{}).Execute(context.Background(), app)
	})
	require.NoError(t, execErr)

	var res struct {
		Status string                `json:"status"`
		Data   report.SnapshotReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, output.StatusSuccess, res.Status)
	assert.True(t, res.Data.Found)
	require.NotNil(t, res.Data.Snapshot)
	assert.Equal(t, "abc123", res.Data.Snapshot.Revision)
	assert.Len(t, res.Data.PersistedKeys, 2, "снимок сохраняется под ключами ветки и ревизии")

	for _, rel := range []string{"branch/main.json", "revision/abc123.json"} {
		_, err := os.Stat(filepath.Join(app.Config.WorkDir, "snapshots", "track-test", filepath.FromSlash(rel)))
		assert.NoError(t, err, "ожидается файл %s", rel)
	}
}

func TestHandler_MissingConfigFile(t *testing.T) {
	app := newApp(t, "")

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = (&Handler{}).Execute(context.Background(), app)
	})

	require.Error(t, execErr)
	assert.Equal(t, apperrors.ErrConfigLoad, apperrors.CodeOf(execErr))
	assert.Contains(t, out, apperrors.ErrConfigLoad)
}
