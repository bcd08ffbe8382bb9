// Package main содержит точку входа unentropy: quality gate для метрик сборки
// (размер бандла, покрытие, время сборки) в CI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unentropy/unentropy-sub001/internal/command"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/shared"
	"github.com/unentropy/unentropy-sub001/internal/config"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
	"github.com/unentropy/unentropy-sub001/internal/gate"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
	"github.com/unentropy/unentropy-sub001/internal/service/qualitygate"
)

func main() {
	os.Exit(run())
}

// run содержит основную логику и возвращает exit code. os.Exit вызывается
// в main после defer-ов, иначе span-ы последнего запуска теряются.
func run() int {
	cfg, err := config.Load()
	if err != nil || cfg == nil {
		fmt.Fprintf(os.Stderr, "Не удалось загрузить конфигурацию: %v\n", err)
		return qualitygate.ExitError
	}
	cfg.Command = resolveCommand(cfg.Command, os.Args[1:])

	if err := handlers.RegisterAll(); err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось зарегистрировать команды: %v\n", err)
		return qualitygate.ExitError
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось инициализировать приложение: %v\n", err)
		return qualitygate.ExitError
	}
	return execute(context.Background(), app)
}

// resolveCommand выбирает команду: первый аргумент важнее INPUT_COMMAND,
// пустая команда означает help.
func resolveCommand(fromEnv string, args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	if fromEnv != "" {
		return fromEnv
	}
	return constants.ActHelp
}

// execute выполняет команду из app.Config и отображает результат в exit code.
func execute(ctx context.Context, app *di.App) int {
	cfg := app.Config
	l := app.Logger.With(slog.String("trace_id", app.TraceID), slog.String("command", cfg.Command))
	l.Debug("Информация о сборке",
		slog.String("version", constants.Version),
		slog.String("commit_hash", constants.PreCommitHash),
	)

	// trace_id в контексте для handlers и как trace ID всех OTel span-ов.
	ctx = tracing.WithTraceID(ctx, app.TraceID)
	ctx = tracing.ContextWithOTelTraceID(ctx, app.TraceID)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.TracerShutdown(shutdownCtx); err != nil {
			l.Error("ошибка завершения tracing", slog.String("error", err.Error()))
		}
	}()

	ctx, span := otel.Tracer(constants.AppName).Start(ctx, cfg.Command,
		trace.WithAttributes(
			attribute.String("command", cfg.Command),
			attribute.String("revision", cfg.Revision),
			attribute.String("branch", cfg.Branch),
		),
	)
	defer span.End()

	handler, ok := command.Get(cfg.Command)
	if !ok {
		err := apperrors.NewAppError(apperrors.ErrCommandNotFound,
			fmt.Sprintf("неизвестная команда %q, доступные: %s", cfg.Command, strings.Join(command.Names(), ", ")), nil)
		l.Error("Команда не найдена", slog.String("error", err.Error()))
		_ = shared.WriteError(ctx, os.Stdout, app, cfg.Command, time.Now(), err, apperrors.ErrCommandNotFound)
		span.SetStatus(codes.Error, err.Error())
		return qualitygate.ExitError
	}

	start := time.Now()
	execErr := handler.Execute(ctx, app)

	app.MetricsCollector.RecordCommand(cfg.Command, time.Since(start), execErr == nil)
	if pushErr := app.MetricsCollector.Push(ctx); pushErr != nil {
		l.Warn("Не удалось отправить метрики", slog.String("error", pushErr.Error()))
	}

	if execErr != nil {
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		if apperrors.IsGateFailure(execErr) {
			l.Info("Quality gate не пройден", slog.String("reason", execErr.Error()))
		} else {
			l.Error("Ошибка выполнения команды",
				slog.String("error", execErr.Error()),
				slog.String("code", apperrors.CodeOf(execErr)),
				slog.String(constants.MsgErrProcessing, constants.MsgAppExit),
			)
		}
	}
	return exitCode(execErr)
}

// exitCode: 0 — успех, 1 — GATE.FAILED, 2 — прочие ошибки.
func exitCode(err error) int {
	return qualitygate.ExitCode(gate.StatusPass, err, qualitygate.ModeHard, false)
}
