// Package trackmetricshandler реализует команду track-metrics: сбор метрик
// и сохранение снимка без оценки правил (прогоны в основной ветке).
package trackmetricshandler

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/command"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/shared"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/report"
)

func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Handler обрабатывает команду track-metrics.
type Handler struct{}

// Name возвращает имя команды.
func (h *Handler) Name() string {
	return constants.ActTrackMetrics
}

// Description возвращает описание команды для вывода в help.
func (h *Handler) Description() string {
	return "Сбор метрик и сохранение снимка без оценки правил"
}

// Execute собирает метрики и сохраняет снимок. Ошибка сохранения
// всегда завершает команду с ошибкой.
func (h *Handler) Execute(ctx context.Context, app *di.App) error {
	start := time.Now()
	log := app.Logger.With("trace_id", shared.TraceID(ctx, app), "command", constants.ActTrackMetrics)

	pipeline, err := app.Factory.NewTrackPipeline(ctx)
	if err != nil {
		log.Error("Не удалось подготовить прогон", "error", err.Error())
		return shared.WriteError(ctx, os.Stdout, app, constants.ActTrackMetrics, start, err, apperrors.ErrCommandExec)
	}
	defer func() {
		if closeErr := pipeline.Close(); closeErr != nil {
			log.Warn("Не удалось закрыть хранилище", "error", closeErr.Error())
		}
	}()

	out, err := pipeline.Service.Track(ctx, pipeline.Request)
	if err != nil {
		log.Error("Не удалось сохранить метрики", "error", err.Error())
		return shared.WriteError(ctx, os.Stdout, app, constants.ActTrackMetrics, start, err, apperrors.ErrCommandExec)
	}

	log.Info("Метрики сохранены",
		"revision", out.Snapshot.Revision,
		"metrics", len(out.Snapshot.Metrics),
		"keys", out.PersistedKeys,
	)

	rep := &report.SnapshotReport{
		Found:         true,
		Snapshot:      out.Snapshot,
		PersistedKeys: out.PersistedKeys,
	}
	result := shared.NewResult(ctx, app, constants.ActTrackMetrics, rep, start)
	result.Summary = output.NewSummaryInfo()
	result.Summary.AddMetric("Метрик", strconv.Itoa(len(out.Snapshot.Metrics)), "")
	result.Summary.AddMetric("Сохранено ключей", strconv.Itoa(len(out.PersistedKeys)), "")
	return shared.Writer(app).Write(os.Stdout, result)
}
