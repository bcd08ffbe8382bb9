// Package baselinehandler реализует команду baseline: вывод снимка, с которым
// quality-gate сравнил бы текущий прогон.
package baselinehandler

import (
	"context"
	"os"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/command"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/shared"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/report"
)

func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Handler обрабатывает команду baseline.
type Handler struct{}

// Name возвращает имя команды.
func (h *Handler) Name() string {
	return constants.ActBaseline
}

// Description возвращает описание команды для вывода в help.
func (h *Handler) Description() string {
	return "Вывод baseline-снимка для настроенной цели сравнения"
}

// Execute читает baseline из хранилища. Отсутствие снимка не является ошибкой.
func (h *Handler) Execute(ctx context.Context, app *di.App) error {
	start := time.Now()
	log := app.Logger.With("trace_id", shared.TraceID(ctx, app), "command", constants.ActBaseline)

	if _, err := app.Config.RequireFile(); err != nil {
		return shared.WriteError(ctx, os.Stdout, app, constants.ActBaseline, start, err, apperrors.ErrConfigLoad)
	}

	st, err := app.Factory.OpenStorage(ctx)
	if err != nil {
		log.Error("Не удалось открыть хранилище", "error", err.Error())
		return shared.WriteError(ctx, os.Stdout, app, constants.ActBaseline, start, err, apperrors.ErrStorageUnavailable)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Warn("Не удалось закрыть хранилище", "error", closeErr.Error())
		}
	}()

	snap, key, err := st.FetchBaseline(ctx)
	if err != nil {
		log.Error("Не удалось прочитать baseline", "target", st.Baseline().String(), "error", err.Error())
		return shared.WriteError(ctx, os.Stdout, app, constants.ActBaseline, start, err, apperrors.ErrStorageFetch)
	}

	rep := &report.SnapshotReport{Key: key, Found: snap != nil, Snapshot: snap}
	result := shared.NewResult(ctx, app, constants.ActBaseline, rep, start)
	return shared.Writer(app).Write(os.Stdout, result)
}
