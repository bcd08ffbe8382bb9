// Package command предоставляет интерфейс и реестр команд приложения.
// Обработчики регистрируются явно через handlers.RegisterAll().
package command

import (
	"context"

	"github.com/unentropy/unentropy-sub001/internal/di"
)

// Handler определяет интерфейс обработчика команды.
type Handler interface {
	// Name возвращает имя команды в kebab-case (константы из internal/constants).
	Name() string

	// Description возвращает описание команды для вывода в help.
	Description() string

	// Execute выполняет команду. Зависимости (логгер, вывод, метрики)
	// берутся из app, собранного через di.InitializeApp.
	Execute(ctx context.Context, app *di.App) error
}
