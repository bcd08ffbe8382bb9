package version

import (
	"bytes"
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/command"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/pkg/testutil"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
)

func jsonApp() *di.App {
	return &di.App{OutputWriter: output.NewJSONWriter(), TraceID: tracing.GenerateTraceID()}
}

func TestBuildVersionData(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		wantVersion string
		wantCommit  string
	}{
		{name: "заданные значения", version: "1.2.3", commit: "abc123", wantVersion: "1.2.3", wantCommit: "abc123"},
		{name: "пустая версия", version: "", commit: "abc123", wantVersion: "dev", wantCommit: "abc123"},
		{name: "пустой commit", version: "1.0.0", commit: "", wantVersion: "1.0.0", wantCommit: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := buildVersionData(tt.version, tt.commit)
			assert.Equal(t, tt.wantVersion, d.Version)
			assert.Equal(t, tt.wantCommit, d.Commit)
			assert.Equal(t, runtime.Version(), d.GoVersion)
		})
	}
}

func TestVersionData_WriteText(t *testing.T) {
	d := &VersionData{Version: "1.2.3", GoVersion: "go1.25.4", Commit: "abc123"}

	var buf bytes.Buffer
	require.NoError(t, d.writeText(&buf))

	assert.Equal(t, "unentropy version 1.2.3\n  Go:     go1.25.4\n  Commit: abc123\n", buf.String())
}

func TestVersionHandler_Name(t *testing.T) {
	h := &VersionHandler{}
	assert.Equal(t, constants.ActVersion, h.Name())
	assert.NotEmpty(t, h.Description())
}

func TestVersionHandler_TextOutput(t *testing.T) {
	h := &VersionHandler{}

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = h.Execute(context.Background(), nil)
	})

	require.NoError(t, execErr)
	assert.Contains(t, out, "unentropy version")
	assert.NotContains(t, out, "trace_id")
}

// TestVersionHandler_StdoutOnlyJSON проверяет что stdout содержит ТОЛЬКО JSON.
func TestVersionHandler_StdoutOnlyJSON(t *testing.T) {
	h := &VersionHandler{}
	app := jsonApp()

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = h.Execute(context.Background(), app)
	})
	require.NoError(t, execErr)

	decoder := json.NewDecoder(bytes.NewReader([]byte(out)))
	var result output.Result
	require.NoError(t, decoder.Decode(&result), "stdout должен начинаться с валидного JSON")

	var remaining bytes.Buffer
	_, _ = remaining.ReadFrom(decoder.Buffered())
	assert.Empty(t, bytes.TrimSpace(remaining.Bytes()), "после JSON в stdout не должно быть лишнего текста")

	assert.Equal(t, output.StatusSuccess, result.Status)
	assert.Equal(t, constants.ActVersion, result.Command)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, app.TraceID, result.Metadata.TraceID)
	assert.Equal(t, constants.APIVersion, result.Metadata.APIVersion)

	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"version", "go_version", "commit"} {
		_, isString := data[key].(string)
		assert.True(t, isString, "data.%s должен быть строкой", key)
	}
	assert.Len(t, data, 3, "data не должен содержать лишних полей")
}

func TestVersionHandler_Registry(t *testing.T) {
	if _, ok := command.Get(constants.ActVersion); !ok {
		require.NoError(t, RegisterCmd())
	}
	handler, ok := command.Get(constants.ActVersion)
	require.True(t, ok, "version должен быть зарегистрирован в реестре")
	assert.IsType(t, &VersionHandler{}, handler)

	assert.Error(t, RegisterCmd(), "повторная регистрация должна вернуть ошибку")
}
