package di

import (
	"log/slog"

	"github.com/unentropy/unentropy-sub001/internal/app"
	"github.com/unentropy/unentropy-sub001/internal/config"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/metrics"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
	"github.com/unentropy/unentropy-sub001/internal/util/runner"
)

// ProvideLogger создаёт Logger на основе секции logging конфигурации.
//
// Если cfg == nil, используются значения по умолчанию:
//   - Level: "info"
//   - Format: "text"
//   - Output: "stderr"
func ProvideLogger(cfg *config.Config) logging.Logger {
	if cfg == nil {
		return logging.NewLogger(logging.DefaultConfig())
	}
	return logging.NewLogger(cfg.Logging.ToLoggingConfig())
}

// ProvideOutputWriter создаёт OutputWriter по формату из конфигурации
// (QG_OUTPUT_FORMAT). Неизвестный или пустой формат даёт TextWriter.
func ProvideOutputWriter(cfg *config.Config) output.Writer {
	format := output.FormatText
	if cfg != nil && cfg.OutputFormat != "" {
		format = cfg.OutputFormat
	}
	return output.NewWriter(format)
}

// ProvideTraceID генерирует trace_id для корреляции логов.
//
// Формат trace_id: 32-символьный hex string (16 байт).
// Пример: "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"
func ProvideTraceID() string {
	return tracing.GenerateTraceID()
}

// ProvideExecutor создаёт ShellExecutor для команд сборщика и git.
func ProvideExecutor(logger logging.Logger) runner.Executor {
	return runner.NewShellExecutor(logger)
}

// ProvideMetricsCollector создаёт Collector на основе секции prometheus.
// При ошибке создания возвращает NopCollector и логирует ошибку.
func ProvideMetricsCollector(cfg *config.Config, logger logging.Logger) metrics.Collector {
	if cfg == nil {
		return metrics.NewNopCollector()
	}

	collector, err := metrics.NewCollector(cfg.PushConfig(), logger)
	if err != nil {
		logger.Error("ошибка создания MetricsCollector, используется NopCollector",
			slog.String("error", err.Error()),
		)
		return metrics.NewNopCollector()
	}
	return collector
}

// ProvideTracerProvider инициализирует OTel TracerProvider и возвращает
// shutdown function. Если трейсинг отключён или не инициализировался,
// возвращается tracing.NopShutdown.
func ProvideTracerProvider(cfg *config.Config, logger logging.Logger) tracing.ShutdownFunc {
	if cfg == nil {
		return tracing.NopShutdown
	}

	shutdown, err := tracing.NewTracerProvider(cfg.Tracing.ToTracingConfig(constants.Version), logger)
	if err != nil {
		logger.Error("ошибка инициализации tracing, используется nop provider",
			slog.String("error", err.Error()),
		)
		return tracing.NopShutdown
	}
	return shutdown
}

// ProvideFactory создаёт фабрику компонентов конвейера quality gate.
func ProvideFactory(
	cfg *config.Config,
	logger logging.Logger,
	exec runner.Executor,
	mc metrics.Collector,
) *app.Factory {
	return app.NewFactory(cfg, logger, exec, mc)
}
