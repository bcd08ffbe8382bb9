package qualitygatehandler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/config"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/gate"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/pkg/testutil"
	"github.com/unentropy/unentropy-sub001/internal/service/qualitygate"
)

const gateYAML = `
namespace: handler-test
metrics:
  - name: answer
    unit: count
    source:
      kind: command
      command: echo 42
qualityGate:
  rules:
    - metric: answer
      maxAbsolute: LIMIT
      direction: lower_is_better
storage:
  provider: local
  options:
    path: snapshots
`

// jsonResult повторяет output.Result с конкретным типом Data.
type jsonResult struct {
	Status  string            `json:"status"`
	Command string            `json:"command"`
	Error   *output.ErrorInfo `json:"error"`
	Data    map[string]any    `json:"data"`
	Meta    *output.Metadata  `json:"metadata"`
}

func newApp(t *testing.T, limit string, format string) *di.App {
	t.Helper()
	cfg := &config.Config{
		Command:      constants.ActQualityGate,
		WorkDir:      t.TempDir(),
		Branch:       "main",
		Revision:     "r1",
		OutputFormat: format,
		Logging:      config.LoggingConfig{Level: "error"},
	}
	if limit != "" {
		file, err := config.ParseFile("unentropy.yml", []byte(strings.Replace(gateYAML, "LIMIT", limit, 1)))
		require.NoError(t, err)
		file.Storage.Options["path"] = filepath.Join(cfg.WorkDir, "snapshots")
		cfg.File = file
	}
	app, err := di.InitializeApp(cfg)
	require.NoError(t, err)
	return app
}

func run(t *testing.T, app *di.App) (jsonResult, error) {
	t.Helper()
	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = (&Handler{}).Execute(context.Background(), app)
	})
	var res jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), "stdout должен содержать JSON: %s", out)
	return res, execErr
}

func TestHandler_Pass(t *testing.T) {
	app := newApp(t, "100", output.FormatJSON)
	app.Config.ReportPath = filepath.Join(app.Config.WorkDir, "summary.md")

	res, err := run(t, app)

	require.NoError(t, err)
	assert.Equal(t, output.StatusSuccess, res.Status)
	assert.Equal(t, constants.ActQualityGate, res.Command)
	assert.Nil(t, res.Error)
	require.NotNil(t, res.Data["result"])
	assert.Equal(t, "pass", res.Data["result"].(map[string]any)["overallStatus"])
	assert.Equal(t, true, res.Data["persisted"])
	require.NotNil(t, res.Meta)
	assert.Equal(t, app.TraceID, res.Meta.TraceID)

	md, readErr := os.ReadFile(app.Config.ReportPath)
	require.NoError(t, readErr, "Markdown-отчёт должен быть записан")
	assert.Contains(t, string(md), "Quality gate: PASS")
}

func TestHandler_FailReturnsGateError(t *testing.T) {
	app := newApp(t, "10", output.FormatJSON)

	res, err := run(t, app)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrGateFailed, apperrors.CodeOf(err))
	assert.Equal(t, output.StatusError, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.ErrGateFailed, res.Error.Code)
	assert.Equal(t, "fail", res.Data["result"].(map[string]any)["overallStatus"])
	assert.Equal(t, false, res.Data["persisted"], "по умолчанию fail не сохраняется")
}

func TestHandler_SoftModeDoesNotBlock(t *testing.T) {
	app := newApp(t, "10", output.FormatJSON)
	app.Config.QualityGateMode = "soft"
	app.Config.ReportPath = filepath.Join(app.Config.WorkDir, "summary.md")

	res, err := run(t, app)

	require.NoError(t, err)
	assert.Equal(t, output.StatusSuccess, res.Status)
	assert.Nil(t, res.Error)
	assert.Equal(t, "soft", res.Data["mode"])
	assert.Equal(t, "fail", res.Data["result"].(map[string]any)["overallStatus"])
	assert.Equal(t, qualitygate.ExitPass, qualitygate.ExitCode(gate.StatusFail, err, qualitygate.ModeSoft, false))

	md, readErr := os.ReadFile(app.Config.ReportPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(md), "Режим soft: нарушения не блокируют сборку")
}

func TestHandler_OffModeSkipsEvaluation(t *testing.T) {
	app := newApp(t, "10", output.FormatJSON)
	app.Config.QualityGateMode = "off"

	res, err := run(t, app)

	require.NoError(t, err)
	assert.Equal(t, output.StatusSuccess, res.Status)
	assert.Equal(t, "off", res.Data["mode"])
	assert.Nil(t, res.Data["result"], "в режиме off оценка не выполняется")
	assert.NoDirExists(t, filepath.Join(app.Config.WorkDir, "snapshots"), "хранилище не открывается")
}

func TestHandler_MissingConfigFile(t *testing.T) {
	app := newApp(t, "", output.FormatJSON)

	res, err := run(t, app)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConfigLoad, apperrors.CodeOf(err))
	assert.Equal(t, output.StatusError, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.ErrConfigLoad, res.Error.Code)
}

func TestHandler_TextOutput(t *testing.T) {
	app := newApp(t, "100", output.FormatText)

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = (&Handler{}).Execute(context.Background(), app)
	})

	require.NoError(t, execErr)
	assert.Contains(t, out, "quality-gate: success")
	assert.Contains(t, out, "Quality gate: PASS")
	assert.Contains(t, out, "answer")
	assert.Contains(t, out, "Сводка")
}

func TestHandler_Name(t *testing.T) {
	h := &Handler{}
	assert.Equal(t, constants.ActQualityGate, h.Name())
	assert.NotEmpty(t, h.Description())
}
