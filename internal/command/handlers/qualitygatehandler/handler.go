// Package qualitygatehandler реализует команду quality-gate: сбор метрик,
// сравнение с baseline, оценку правил и сохранение снимка.
package qualitygatehandler

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/command"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/shared"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/gate"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/output"
	"github.com/unentropy/unentropy-sub001/internal/report"
	"github.com/unentropy/unentropy-sub001/internal/service/qualitygate"
)

func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Handler обрабатывает команду quality-gate.
type Handler struct{}

// Name возвращает имя команды.
func (h *Handler) Name() string {
	return constants.ActQualityGate
}

// Description возвращает описание команды для вывода в help.
func (h *Handler) Description() string {
	return "Сбор метрик, сравнение с baseline и оценка правил quality gate"
}

// Execute выполняет полный прогон и выводит отчёт.
//
// В режиме hard итог fail (или warn при warnAsFail) возвращается как AppError
// с кодом GATE.FAILED, остальные ошибки сохраняют свой код. В режиме soft
// нарушения только попадают в отчёт, в режиме off сбор и оценка не выполняются.
func (h *Handler) Execute(ctx context.Context, app *di.App) error {
	start := time.Now()
	log := app.Logger.With("trace_id", shared.TraceID(ctx, app), "command", constants.ActQualityGate)

	mode, err := app.Factory.GateMode()
	if err != nil {
		log.Error("Не удалось определить режим quality gate", "error", err.Error())
		return shared.WriteError(ctx, os.Stdout, app, constants.ActQualityGate, start, err, apperrors.ErrConfigLoad)
	}
	if !mode.Enabled() {
		return h.skip(ctx, app, log, start)
	}

	pipeline, err := app.Factory.NewPipeline(ctx)
	if err != nil {
		log.Error("Не удалось подготовить прогон", "error", err.Error())
		return shared.WriteError(ctx, os.Stdout, app, constants.ActQualityGate, start, err, apperrors.ErrCommandExec)
	}
	defer func() {
		if closeErr := pipeline.Close(); closeErr != nil {
			log.Warn("Не удалось закрыть хранилище", "error", closeErr.Error())
		}
	}()

	log.Info("Запуск quality gate",
		"revision", pipeline.Request.Revision,
		"branch", pipeline.Request.Branch,
		"metrics", len(pipeline.Request.Specs),
		"rules", len(pipeline.Request.Rules),
	)

	out, runErr := pipeline.Service.Run(ctx, pipeline.Request)
	if out == nil || out.Result == nil {
		log.Error("Прогон quality gate прерван", "error", runErr.Error())
		return shared.WriteError(ctx, os.Stdout, app, constants.ActQualityGate, start, runErr, apperrors.ErrCommandExec)
	}

	rep := &report.GateReport{
		Revision:      pipeline.Request.Revision,
		Branch:        pipeline.Request.Branch,
		Mode:          pipeline.Mode.String(),
		Result:        out.Result,
		Samples:       out.Samples,
		Warnings:      out.Warnings,
		Persisted:     out.Persisted,
		PersistedKeys: out.PersistedKeys,
	}
	status := out.Result.OverallStatus
	blocking := qualitygate.ExitCode(status, nil, pipeline.Mode, pipeline.WarnAsFail) == qualitygate.ExitFail
	if !blocking && qualitygate.ExitCode(status, nil, qualitygate.ModeHard, pipeline.WarnAsFail) == qualitygate.ExitFail {
		log.Warn("Нарушения quality gate не блокируют сборку", "mode", pipeline.Mode.String(), "status", status.String())
	}
	if path := app.Config.ReportPath; path != "" {
		if err := rep.AppendMarkdown(path); err != nil {
			log.Warn("Не удалось записать Markdown-отчёт", "path", path, "error", err.Error())
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("отчёт %s не записан: %v", path, err))
		} else {
			log.Debug("Markdown-отчёт записан", "path", path)
		}
	}

	resultErr := runErr
	if resultErr == nil && blocking {
		resultErr = gateFailure(out.Result, pipeline.WarnAsFail)
	}

	log.Info("Quality gate завершён",
		"status", status.String(),
		"mode", pipeline.Mode.String(),
		"violations", len(out.Result.Failed(gate.StatusWarn)),
		"persisted", out.Persisted,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result := shared.NewResult(ctx, app, constants.ActQualityGate, rep, start)
	result.Summary = buildSummary(rep)
	if resultErr != nil {
		result.Status = output.StatusError
		result.Error = output.NewErrorInfo(resultErr, apperrors.ErrCommandExec)
	}
	if err := shared.Writer(app).Write(os.Stdout, result); err != nil {
		log.Error("Не удалось вывести отчёт", "error", err.Error())
		if resultErr == nil {
			return apperrors.NewAppError(apperrors.ErrOutputFormat, "не удалось вывести отчёт", err)
		}
	}
	return resultErr
}

// skip выводит отчёт режима off без сбора метрик и обращения к хранилищу.
func (h *Handler) skip(ctx context.Context, app *di.App, log logging.Logger, start time.Time) error {
	log.Info("Quality gate отключён", "mode", qualitygate.ModeOff.String())

	rep := &report.GateReport{
		Revision: app.Config.Revision,
		Branch:   app.Config.Branch,
		Mode:     qualitygate.ModeOff.String(),
	}
	if path := app.Config.ReportPath; path != "" {
		if err := rep.AppendMarkdown(path); err != nil {
			log.Warn("Не удалось записать Markdown-отчёт", "path", path, "error", err.Error())
		}
	}

	result := shared.NewResult(ctx, app, constants.ActQualityGate, rep, start)
	summary := output.NewSummaryInfo()
	summary.AddMetric("Режим", qualitygate.ModeOff.String(), "")
	result.Summary = summary
	if err := shared.Writer(app).Write(os.Stdout, result); err != nil {
		log.Error("Не удалось вывести отчёт", "error", err.Error())
		return apperrors.NewAppError(apperrors.ErrOutputFormat, "не удалось вывести отчёт", err)
	}
	return nil
}

// gateFailure формирует ошибку GATE.FAILED с числом нарушений.
func gateFailure(res *gate.QualityGateResult, warnAsFail bool) error {
	minStatus := gate.StatusFail
	if warnAsFail {
		minStatus = gate.StatusWarn
	}
	failed := res.Failed(minStatus)
	return apperrors.NewAppError(apperrors.ErrGateFailed,
		fmt.Sprintf("quality gate: %s, нарушений: %d", res.OverallStatus, len(failed)), nil)
}

func buildSummary(rep *report.GateReport) *output.SummaryInfo {
	summary := output.NewSummaryInfo()
	summary.AddMetric("Статус", rep.Result.OverallStatus.String(), "")
	summary.AddMetric("Режим", rep.Mode, "")
	summary.AddMetric("Метрик", strconv.Itoa(len(rep.Samples)), "")
	summary.AddMetric("Нарушений", strconv.Itoa(len(rep.Result.Failed(gate.StatusWarn))), "")
	if len(rep.PersistedKeys) > 0 {
		summary.AddMetric("Сохранено ключей", strconv.Itoa(len(rep.PersistedKeys)), "")
	}
	for _, w := range rep.Warnings {
		summary.AddWarning(w)
	}
	return summary
}
