package di

import (
	"github.com/unentropy/unentropy-sub001/internal/app"
	"github.com/unentropy/unentropy-sub001/internal/config"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/metrics"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
	"github.com/unentropy/unentropy-sub001/internal/util/runner"
)

// App содержит инициализированные зависимости приложения.
// Создаётся через Wire DI в InitializeApp().
//
// При добавлении новых зависимостей:
// 1. Добавить поле в App struct
// 2. Создать провайдер в providers.go
// 3. Добавить провайдер в ProviderSet в wire.go
// 4. Перегенерировать wire_gen.go: go generate ./internal/di/...
type App struct {
	// Config содержит конфигурацию приложения.
	// Передаётся извне через InitializeApp().
	Config *config.Config

	// Logger предоставляет структурированное логирование.
	Logger logging.Logger

	// OutputWriter форматирует результаты команд (QG_OUTPUT_FORMAT).
	OutputWriter output.Writer

	// TraceID связывает логи, span-ы и вывод одного запуска.
	TraceID string

	// Executor запускает команды сборщика метрик и git.
	Executor runner.Executor

	// MetricsCollector отправляет метрики прогона в Pushgateway.
	// Если метрики отключены, используется NopCollector.
	MetricsCollector metrics.Collector

	// TracerShutdown завершает OTel TracerProvider и отправляет буферизированные span-ы.
	TracerShutdown tracing.ShutdownFunc

	// Factory создаёт сборщик, хранилище и сервис quality gate.
	Factory *app.Factory
}
