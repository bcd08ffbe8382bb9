// Package app собирает компоненты конвейера quality gate из конфигурации:
// сборщик метрик, хранилище снимков и сервис оценки.
package app

import (
	"context"

	"github.com/unentropy/unentropy-sub001/internal/collector"
	"github.com/unentropy/unentropy-sub001/internal/config"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/metrics"
	"github.com/unentropy/unentropy-sub001/internal/service/qualitygate"
	"github.com/unentropy/unentropy-sub001/internal/storage"
	"github.com/unentropy/unentropy-sub001/internal/storage/providers"
	"github.com/unentropy/unentropy-sub001/internal/util/runner"
)

// Factory создаёт компоненты конвейера по требованию. Хранилище открывается
// только командами, которым оно нужно, поэтому version и help работают без
// файла конфигурации и без доступа к backend-у.
type Factory struct {
	cfg     *config.Config
	logger  logging.Logger
	exec    runner.Executor
	metrics metrics.Collector
}

// NewFactory создаёт Factory. mc может быть nil.
func NewFactory(cfg *config.Config, logger logging.Logger, exec runner.Executor, mc metrics.Collector) *Factory {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if mc == nil {
		mc = metrics.NewNopCollector()
	}
	return &Factory{cfg: cfg, logger: logger, exec: exec, metrics: mc}
}

// OpenStorage открывает хранилище, настроенное в конфигурации.
// Вызывающий обязан закрыть его через Close.
func (f *Factory) OpenStorage(ctx context.Context) (*storage.Storage, error) {
	if err := providers.RegisterAll(); err != nil {
		return nil, err
	}
	return storage.New(ctx, f.cfg.StorageConfig(), storage.Deps{
		Logger:   f.logger,
		Executor: f.exec,
		WorkDir:  f.cfg.WorkDir,
	})
}

// NewCollector создаёт сборщик метрик.
func (f *Factory) NewCollector() *collector.Collector {
	return collector.New(f.exec, f.logger, f.cfg.CollectorOptions())
}

// Request формирует запрос прогона из файла конфигурации и параметров CI.
func (f *Factory) Request() (qualitygate.Request, error) {
	file, err := f.cfg.RequireFile()
	if err != nil {
		return qualitygate.Request{}, err
	}
	specs, err := file.Specs()
	if err != nil {
		return qualitygate.Request{}, err
	}
	return qualitygate.Request{
		Revision: f.cfg.Revision,
		Branch:   f.cfg.Branch,
		Specs:    specs,
		Rules:    file.Rules(),
	}, nil
}

// GateMode возвращает режим quality gate. Требует файл конфигурации.
func (f *Factory) GateMode() (qualitygate.Mode, error) {
	if _, err := f.cfg.RequireFile(); err != nil {
		return "", err
	}
	return f.cfg.GateMode()
}

// Pipeline — открытый конвейер: сервис и хранилище, которое нужно закрыть.
type Pipeline struct {
	Service *qualitygate.Service
	Storage *storage.Storage
	Request qualitygate.Request
	// Mode — режим quality gate.
	Mode qualitygate.Mode
	// WarnAsFail — итоговый warn даёт ненулевой код завершения в режиме hard.
	WarnAsFail bool
}

// Close закрывает хранилище конвейера.
func (p *Pipeline) Close() error {
	if p == nil || p.Storage == nil {
		return nil
	}
	return p.Storage.Close()
}

// NewPipeline проверяет конфигурацию, включая цель сравнения, открывает
// хранилище и создаёт сервис. Пустая цель сравнения обнаруживается до сбора
// метрик.
func (f *Factory) NewPipeline(ctx context.Context) (*Pipeline, error) {
	return f.newPipeline(ctx, true)
}

// NewTrackPipeline создаёт конвейер для сохранения метрик без оценки:
// цель сравнения ему не нужна.
func (f *Factory) NewTrackPipeline(ctx context.Context) (*Pipeline, error) {
	return f.newPipeline(ctx, false)
}

func (f *Factory) newPipeline(ctx context.Context, needBaseline bool) (*Pipeline, error) {
	req, err := f.Request()
	if err != nil {
		return nil, err
	}
	policy, err := f.cfg.File.Policy()
	if err != nil {
		return nil, err
	}
	mode, err := f.cfg.GateMode()
	if err != nil {
		return nil, err
	}
	if needBaseline {
		if err := f.cfg.StorageConfig().Baseline.Validate(); err != nil {
			return nil, err
		}
	}
	st, err := f.OpenStorage(ctx)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("Хранилище открыто",
		"provider", st.ProviderName(),
		"baseline", st.Baseline().String(),
	)
	return &Pipeline{
		Service:    qualitygate.New(f.NewCollector(), st, policy, f.logger, f.metrics),
		Storage:    st,
		Request:    req,
		Mode:       mode,
		WarnAsFail: f.cfg.File.QualityGate.WarnAsFail,
	}, nil
}
