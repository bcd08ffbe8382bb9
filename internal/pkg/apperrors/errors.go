// Package apperrors предоставляет структурированные ошибки приложения.
// Переименован из errors чтобы избежать конфликта со стандартной библиотекой.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Коды ошибок в иерархическом формате: CATEGORY.SPECIFIC_ERROR.
// Позволяет grep по категориям: `grep "STORAGE\."` для всех ошибок хранилища.
const (
	// Category: CONFIG — ошибки конфигурации. Всегда фатальны.
	ErrConfigLoad          = "CONFIG.LOAD_FAILED"
	ErrConfigParse         = "CONFIG.PARSE_FAILED"
	ErrConfigValidate      = "CONFIG.VALIDATION_FAILED"
	ErrConfigUnknownMetric = "CONFIG.UNKNOWN_METRIC"
	ErrConfigInvalidRule   = "CONFIG.INVALID_RULE"
	ErrConfigProvider      = "CONFIG.INVALID_PROVIDER"

	// Category: COLLECTION — метрику не удалось получить.
	ErrCollectionFailed  = "COLLECTION.FAILED"
	ErrCollectionParse   = "COLLECTION.PARSE_FAILED"
	ErrCollectionTimeout = "COLLECTION.TIMEOUT"

	// Category: STORAGE — ошибки backend-а хранилища.
	ErrStorageFetch       = "STORAGE.FETCH_FAILED"
	ErrStorageStore       = "STORAGE.STORE_FAILED"
	ErrStorageTimeout     = "STORAGE.TIMEOUT"
	ErrStorageUnavailable = "STORAGE.UNAVAILABLE"

	// Category: GATE — успешно вычисленный отрицательный вердикт.
	// Не является сбоем: используется только на границе процесса для exit code.
	ErrGateFailed = "GATE.FAILED"

	// Category: COMMAND — ошибки выполнения команд.
	ErrCommandNotFound = "COMMAND.NOT_FOUND"
	ErrCommandExec     = "COMMAND.EXEC_FAILED"

	// Category: OUTPUT — ошибки форматирования вывода.
	ErrOutputFormat = "OUTPUT.FORMAT_FAILED"
)

// Категории ошибок (префикс кода).
const (
	CategoryConfig     = "CONFIG"
	CategoryCollection = "COLLECTION"
	CategoryStorage    = "STORAGE"
	CategoryGate       = "GATE"
	CategoryCommand    = "COMMAND"
	CategoryOutput     = "OUTPUT"
)

// AppError представляет структурированную ошибку приложения.
// Реализует error interface и поддерживает wrapping через Unwrap().
//
// ВАЖНО: Message НЕ ДОЛЖЕН содержать секреты (пароли, токены, ключи).
//
// Пример использования:
//
//	return apperrors.NewStorageError(apperrors.ErrStorageFetch, "s3",
//	    "не удалось прочитать baseline", err)
type AppError struct {
	// Code — машиночитаемый код ошибки в формате CATEGORY.SPECIFIC.
	Code string `json:"code"`

	// Message — человекочитаемое описание ошибки.
	Message string `json:"message"`

	// Subject — имя метрики, правила или провайдера, к которому относится ошибка.
	Subject string `json:"subject,omitempty"`

	// Cause — wrapped оригинальная ошибка.
	// Не сериализуется в JSON (может содержать детали окружения).
	Cause error `json:"-"`
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	if e.Subject != "" {
		fmt.Fprintf(&b, "[%s] ", e.Subject)
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (%v)", e.Cause)
	}
	return b.String()
}

// Unwrap возвращает wrapped ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Category возвращает категорию кода ошибки (часть до первой точки).
func (e *AppError) Category() string {
	category, _, _ := strings.Cut(e.Code, ".")
	return category
}

// NewAppError создаёт новый AppError с заданным кодом, сообщением и причиной.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigurationError создаёт ошибку конфигурации для указанного subject.
func NewConfigurationError(code, subject, message string, cause error) *AppError {
	return &AppError{Code: code, Subject: subject, Message: message, Cause: cause}
}

// NewCollectionError создаёт ошибку сбора метрики metricName.
func NewCollectionError(code, metricName, message string, cause error) *AppError {
	return &AppError{Code: code, Subject: metricName, Message: message, Cause: cause}
}

// NewStorageError создаёт ошибку хранилища для провайдера provider.
func NewStorageError(code, provider, message string, cause error) *AppError {
	return &AppError{Code: code, Subject: provider, Message: message, Cause: cause}
}

// CategoryOf возвращает категорию первой AppError в цепочке err.
// Пустая строка — если err не содержит AppError.
func CategoryOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category()
	}
	return ""
}

// CodeOf возвращает код первой AppError в цепочке err.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsConfiguration сообщает, является ли err ошибкой конфигурации.
func IsConfiguration(err error) bool { return CategoryOf(err) == CategoryConfig }

// IsCollection сообщает, является ли err ошибкой сбора метрик.
func IsCollection(err error) bool { return CategoryOf(err) == CategoryCollection }

// IsStorage сообщает, является ли err ошибкой хранилища.
func IsStorage(err error) bool { return CategoryOf(err) == CategoryStorage }

// IsGateFailure сообщает, что err — отрицательный вердикт quality gate.
func IsGateFailure(err error) bool { return CodeOf(err) == ErrGateFailed }
