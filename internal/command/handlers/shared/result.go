// Package shared содержит общие компоненты для всех command handlers:
// формирование output.Result и вывод ошибок в выбранном формате.
package shared

import (
	"context"
	"io"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
)

// TraceID возвращает trace_id из контекста, затем из App. Если нет ни того,
// ни другого, генерируется новый.
func TraceID(ctx context.Context, app *di.App) string {
	if id := tracing.TraceIDFromContext(ctx); id != "" {
		return id
	}
	if app != nil && app.TraceID != "" {
		return app.TraceID
	}
	return tracing.GenerateTraceID()
}

// Writer возвращает OutputWriter приложения или TextWriter, если App не собран.
func Writer(app *di.App) output.Writer {
	if app != nil && app.OutputWriter != nil {
		return app.OutputWriter
	}
	return output.NewTextWriter()
}

// NewResult создаёт успешный Result с метаданными запуска.
func NewResult(ctx context.Context, app *di.App, command string, data any, start time.Time) *output.Result {
	return &output.Result{
		Status:  output.StatusSuccess,
		Command: command,
		Data:    data,
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    TraceID(ctx, app),
			APIVersion: constants.APIVersion,
		},
	}
}

// WriteError выводит ошибку команды в w и возвращает исходную ошибку.
// Код и subject берутся из AppError, иначе используется defaultCode.
// Ошибка записи логируется и не подменяет исходную.
func WriteError(ctx context.Context, w io.Writer, app *di.App, command string, start time.Time, err error, defaultCode string) error {
	result := &output.Result{
		Status:  output.StatusError,
		Command: command,
		Error:   output.NewErrorInfo(err, defaultCode),
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    TraceID(ctx, app),
			APIVersion: constants.APIVersion,
		},
	}
	if writeErr := Writer(app).Write(w, result); writeErr != nil && app != nil && app.Logger != nil {
		app.Logger.Error("Не удалось записать ответ об ошибке",
			"command", command,
			"error", writeErr.Error(),
		)
	}
	return err
}

// IsJSON сообщает, выбран ли машиночитаемый вывод (QG_OUTPUT_FORMAT=json).
func IsJSON(app *di.App) bool {
	if app == nil {
		return false
	}
	if _, ok := app.OutputWriter.(*output.JSONWriter); ok {
		return true
	}
	return app.Config != nil && app.Config.OutputFormat == output.FormatJSON
}
