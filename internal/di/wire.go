//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/unentropy/unentropy-sub001/internal/config"
)

//go:generate wire

// ProviderSet объединяет все провайдеры приложения.
//
// При добавлении новых провайдеров:
// 1. Создать функцию провайдера в providers.go
// 2. Добавить её в ProviderSet
// 3. Перегенерировать: go generate ./internal/di/...
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideOutputWriter,
	ProvideTraceID,
	ProvideExecutor,
	ProvideMetricsCollector,
	ProvideTracerProvider,
	ProvideFactory,
	wire.Struct(new(App), "*"),
)

// InitializeApp создаёт App через Wire DI из загруженного config.Load() Config.
//
// Wire генерирует реализацию этой функции в wire_gen.go.
// nil Config допустим: провайдеры используют значения по умолчанию.
func InitializeApp(cfg *config.Config) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
