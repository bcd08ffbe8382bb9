// Package output форматирует результаты команд в JSON и текст.
// Формат выбирается переменной QG_OUTPUT_FORMAT.
package output

import (
	"errors"

	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
)

// StatusSuccess и StatusError — возможные значения поля Status в Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result — структурированный результат выполнения команды.
type Result struct {
	Status  string `json:"status"`
	Command string `json:"command"`

	// Data — payload конкретной команды.
	Data any `json:"data,omitempty"`

	Error    *ErrorInfo `json:"error,omitempty"`
	Metadata *Metadata  `json:"metadata,omitempty"`

	// Summary не сериализуется напрямую: JSONWriter переносит его в Metadata.Summary.
	Summary *SummaryInfo `json:"-"`
}

// ErrorInfo — ошибка в машиночитаемом виде. Message не должен содержать секретов.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Subject — метрика, правило или провайдер, к которому относится ошибка.
	Subject string `json:"subject,omitempty"`
}

// NewErrorInfo строит ErrorInfo из ошибки. Код и subject берутся из AppError,
// для прочих ошибок используется defaultCode.
func NewErrorInfo(err error, defaultCode string) *ErrorInfo {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &ErrorInfo{Code: appErr.Code, Message: appErr.Error(), Subject: appErr.Subject}
	}
	return &ErrorInfo{Code: defaultCode, Message: err.Error()}
}

// Metadata — метаданные выполнения команды.
type Metadata struct {
	DurationMs int64  `json:"duration_ms"`
	TraceID    string `json:"trace_id,omitempty"`
	// APIVersion — версия формата вывода, сейчас "v1".
	APIVersion string `json:"api_version"`

	Summary *SummaryInfo `json:"summary,omitempty"`
}
