// Package collector собирает текущие значения метрик в снимок.
//
// Извлечения независимы и выполняются параллельно с ограничением числа
// одновременных задач. Каждая задача пишет только в свой слот результата;
// снимок формируется после завершения всех задач. Ошибка любой метрики
// отменяет остальные, частичный снимок не создаётся.
package collector

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/util/runner"
)

// DefaultTimeout — таймаут извлечения одной метрики по умолчанию.
const DefaultTimeout = 10 * time.Minute

// Options настраивает сборщик.
type Options struct {
	// Concurrency — максимум одновременных извлечений. 0 — runtime.NumCPU().
	Concurrency int
	// Timeout — таймаут одной метрики, если в Spec не задан свой.
	Timeout time.Duration
	// WorkDir — рабочая директория команд и база для относительных путей.
	WorkDir string
	// Env дополняет окружение команд.
	Env []string
}

// Collector собирает метрики по спецификациям.
type Collector struct {
	exec   runner.Executor
	logger logging.Logger
	opts   Options
	now    func() time.Time
}

// New создаёт Collector.
func New(exec runner.Executor, logger logging.Logger, opts Options) *Collector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Collector{exec: exec, logger: logger, opts: opts, now: time.Now}
}

// Collect извлекает все метрики и возвращает снимок для revision.
// Ошибка конфигурации возвращается до запуска извлечений.
func (c *Collector) Collect(ctx context.Context, revision string, specs []Spec) (*metric.Snapshot, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}

	start := c.now()
	slots := make([]metric.Metric, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, spec := range specs {
		g.Go(func() error {
			value, err := c.extract(gctx, spec)
			if err != nil {
				return err
			}
			slots[i] = metric.Metric{Name: spec.Name, Value: value, Unit: spec.Unit}
			c.logger.Debug("Метрика собрана", "metric", spec.Name, "value", value, "unit", string(spec.Unit))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Error("Сбор метрик прерван", "error", err.Error())
		return nil, err
	}

	snap, err := metric.NewSnapshot(revision, c.now(), slots)
	if err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "", "некорректный набор метрик", err)
	}
	c.logger.Info("Метрики собраны",
		"count", len(slots),
		"duration_ms", c.now().Sub(start).Milliseconds(),
	)
	return snap, nil
}

// extract получает значение одной метрики с учётом её таймаута.
func (c *Collector) extract(ctx context.Context, spec Spec) (float64, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		value float64
		err   error
	)
	switch spec.Source.Kind {
	case SourceCommand:
		value, err = c.fromCommand(ctx, spec)
	case SourceCommandDuration:
		value, err = c.fromCommandDuration(ctx, spec)
	case SourceFileSize:
		value, err = fileSize(c.opts.WorkDir, spec.Source.Paths)
	case SourceLCOV:
		value, err = lcovCoverage(resolvePath(c.opts.WorkDir, spec.Source.Paths[0]), spec.Source)
	case SourceCobertura:
		value, err = coberturaCoverage(resolvePath(c.opts.WorkDir, spec.Source.Paths[0]), spec.Source)
	}
	if err != nil {
		return 0, wrapCollectionError(ctx, spec.Name, err)
	}
	if err := checkFinite(value); err != nil {
		return 0, apperrors.NewCollectionError(apperrors.ErrCollectionParse, spec.Name, "значение метрики не является конечным числом", err)
	}
	return value, nil
}

func (c *Collector) command(spec Spec) runner.Command {
	return runner.Command{Script: spec.Source.Command, WorkDir: c.opts.WorkDir, Env: c.opts.Env}
}

func (c *Collector) fromCommand(ctx context.Context, spec Spec) (float64, error) {
	res, err := c.exec.Run(ctx, c.command(spec))
	if err != nil {
		return 0, err
	}
	return ParseCommandOutput(res.Stdout)
}

func (c *Collector) fromCommandDuration(ctx context.Context, spec Spec) (float64, error) {
	res, err := c.exec.Run(ctx, c.command(spec))
	if err != nil {
		return 0, err
	}
	return float64(res.Duration.Microseconds()) / 1000, nil
}

// wrapCollectionError превращает ошибку извлечения в CollectionError с именем метрики.
func wrapCollectionError(ctx context.Context, name string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var parseErr *ParseError
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		return apperrors.NewCollectionError(apperrors.ErrCollectionTimeout, name, "истёк таймаут извлечения метрики", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewCollectionError(apperrors.ErrCollectionFailed, name, "извлечение метрики отменено", err)
	case errors.As(err, &parseErr):
		return apperrors.NewCollectionError(apperrors.ErrCollectionParse, name, "не удалось разобрать значение метрики", err)
	default:
		return apperrors.NewCollectionError(apperrors.ErrCollectionFailed, name, "не удалось получить метрику", err)
	}
}
