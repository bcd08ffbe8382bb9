package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
)

func TestTraceID_Priority(t *testing.T) {
	app := &di.App{TraceID: "app-trace"}

	ctx := tracing.WithTraceID(context.Background(), "ctx-trace")
	assert.Equal(t, "ctx-trace", TraceID(ctx, app), "trace_id из контекста важнее App")
	assert.Equal(t, "app-trace", TraceID(context.Background(), app))
	assert.Len(t, TraceID(context.Background(), nil), 32, "без источников генерируется новый")
}

func TestWriter_Fallback(t *testing.T) {
	assert.IsType(t, &output.TextWriter{}, Writer(nil))
	assert.IsType(t, &output.JSONWriter{}, Writer(&di.App{OutputWriter: output.NewJSONWriter()}))
}

func TestNewResult(t *testing.T) {
	app := &di.App{TraceID: "abc"}
	res := NewResult(context.Background(), app, "version", map[string]string{"k": "v"}, time.Now())

	assert.Equal(t, output.StatusSuccess, res.Status)
	assert.Equal(t, "version", res.Command)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "abc", res.Metadata.TraceID)
	assert.Equal(t, "v1", res.Metadata.APIVersion)
}

func TestWriteError_JSON(t *testing.T) {
	app := &di.App{
		OutputWriter: output.NewJSONWriter(),
		Logger:       logging.NewNopLogger(),
		TraceID:      "abc",
	}
	cause := apperrors.NewStorageError(apperrors.ErrStorageFetch, "s3", "нет доступа", errors.New("403"))

	var buf bytes.Buffer
	err := WriteError(context.Background(), &buf, app, "baseline", time.Now(), cause, apperrors.ErrCommandExec)

	assert.Same(t, cause, err, "должна вернуться исходная ошибка")

	var res output.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, output.StatusError, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.ErrStorageFetch, res.Error.Code)
	assert.Equal(t, "s3", res.Error.Subject)
}

func TestWriteError_DefaultCode(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteError(context.Background(), &buf, nil, "baseline", time.Now(), errors.New("boom"), apperrors.ErrCommandExec)

	assert.Contains(t, buf.String(), "baseline: error")
	assert.Contains(t, buf.String(), apperrors.ErrCommandExec)
	assert.Contains(t, buf.String(), "boom")
}

func TestIsJSON(t *testing.T) {
	assert.False(t, IsJSON(nil))
	assert.False(t, IsJSON(&di.App{OutputWriter: output.NewTextWriter()}))
	assert.True(t, IsJSON(&di.App{OutputWriter: output.NewJSONWriter()}))
}
