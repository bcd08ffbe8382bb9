// Package qualitygate связывает сбор метрик, хранилище снимков и оценку
// пороговых правил в один прогон quality gate.
package qualitygate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/unentropy/unentropy-sub001/internal/collector"
	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/gate"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/metrics"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
)

// MetricCollector собирает текущие значения метрик.
type MetricCollector interface {
	Collect(ctx context.Context, revision string, specs []collector.Spec) (*metric.Snapshot, error)
}

// SnapshotStore хранит снимки. Отсутствие baseline — (nil, key, nil).
type SnapshotStore interface {
	FetchBaseline(ctx context.Context) (*metric.Snapshot, string, error)
	Persist(ctx context.Context, branch string, snap *metric.Snapshot) ([]string, error)
}

// Request — входные данные одного прогона.
type Request struct {
	// Revision — ревизия текущего прогона, попадает в снимок.
	Revision string
	// Branch — ветка, под которой сохраняется снимок.
	Branch string
	Specs  []collector.Spec
	Rules  []gate.ThresholdRule
}

// Outcome — итог прогона.
type Outcome struct {
	// Result пуст для Track.
	Result   *gate.QualityGateResult
	Snapshot *metric.Snapshot
	Baseline *metric.Snapshot
	Samples  []gate.MetricSample
	// Warnings — некритичные проблемы прогона (ошибки сохранения, недоступный baseline).
	Warnings      []string
	Persisted     bool
	PersistedKeys []string
}

// Service выполняет прогоны quality gate.
type Service struct {
	collector MetricCollector
	store     SnapshotStore
	policy    Policy
	logger    logging.Logger
	metrics   metrics.Collector

	now      func() time.Time
	newRunID func() string
}

// New создаёт Service. logger и mc могут быть nil.
func New(c MetricCollector, store SnapshotStore, policy Policy, logger logging.Logger, mc metrics.Collector) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if mc == nil {
		mc = metrics.NewNopCollector()
	}
	if policy.Persist == "" {
		policy.Persist = PersistOnPassOnly
	}
	return &Service{
		collector: c,
		store:     store,
		policy:    policy,
		logger:    logger,
		metrics:   mc,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// Run выполняет полный конвейер: сбор, baseline, сравнение, оценка, сохранение.
//
// Статус fail не является ошибкой: он возвращается в Outcome.Result.
// Ошибки конфигурации, сбора и (в зависимости от Policy) хранилища прерывают прогон.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := checkRuleTargets(req.Specs, req.Rules); err != nil {
		return nil, err
	}

	snap, err := s.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Snapshot: snap}

	baseline, key, err := s.fetchBaseline(ctx)
	if err != nil {
		if !s.policy.FetchErrorsAsMissing || !apperrors.IsStorage(err) {
			return nil, err
		}
		s.logger.Warn("Baseline недоступен, сравнение без baseline", "error", err.Error())
		out.Warnings = append(out.Warnings, fmt.Sprintf("baseline недоступен: %v", err))
		baseline = nil
	}
	out.Baseline = baseline

	result, err := s.evaluate(ctx, out, req.Rules, key)
	if err != nil {
		return nil, err
	}
	out.Result = result
	s.recordResult(out)

	if !s.policy.ShouldPersist(result.OverallStatus) {
		s.logger.Info("Снимок не сохраняется по политике",
			"policy", string(s.policy.Persist), "status", result.OverallStatus.String())
		return out, nil
	}
	if err := s.persist(ctx, req.Branch, out); err != nil {
		if s.policy.StoreErrorsFatal {
			return out, err
		}
		s.logger.Warn("Не удалось сохранить снимок", "error", err.Error())
		out.Warnings = append(out.Warnings, fmt.Sprintf("снимок не сохранён: %v", err))
	}
	return out, nil
}

// Track собирает метрики и сохраняет снимок без оценки правил.
// Ошибка сохранения всегда возвращается: сохранение — единственная цель прогона.
func (s *Service) Track(ctx context.Context, req Request) (*Outcome, error) {
	snap, err := s.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Snapshot: snap}
	for _, m := range snap.Sorted() {
		s.metrics.RecordMetricValue(m.Name, string(m.Unit), m.Value, nil)
	}
	if err := s.persist(ctx, req.Branch, out); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Service) collect(ctx context.Context, req Request) (snap *metric.Snapshot, err error) {
	ctx, end := tracing.StartSpan(ctx, "collect", attribute.Int("metrics.count", len(req.Specs)))
	defer func() { end(err) }()

	snap, err = s.collector.Collect(ctx, req.Revision, req.Specs)
	if err != nil {
		return nil, err
	}
	snap.Branch = req.Branch
	snap.RunID = s.newRunID()
	return snap, nil
}

func (s *Service) fetchBaseline(ctx context.Context) (snap *metric.Snapshot, key string, err error) {
	ctx, end := tracing.StartSpan(ctx, "fetch-baseline")
	defer func() { end(err) }()
	return s.store.FetchBaseline(ctx)
}

func (s *Service) evaluate(ctx context.Context, out *Outcome, rules []gate.ThresholdRule, key string) (res *gate.QualityGateResult, err error) {
	_, end := tracing.StartSpan(ctx, "evaluate", attribute.Int("rules.count", len(rules)))
	defer func() { end(err) }()

	out.Samples = gate.BuildMetricSamples(out.Snapshot, out.Baseline)
	res, err = gate.EvaluateQualityGate(out.Samples, rules, gate.NewBaselineInfo(key, out.Baseline))
	if err != nil {
		return nil, err
	}
	res.RemovedMetrics = gate.RemovedMetrics(out.Snapshot, out.Baseline)

	s.logger.Info("Quality gate оценён",
		"status", res.OverallStatus.String(),
		"rules", len(res.MetricResults),
		"baseline_found", res.Baseline.Found,
		"removed_metrics", len(res.RemovedMetrics),
	)
	return res, nil
}

func (s *Service) persist(ctx context.Context, branch string, out *Outcome) (err error) {
	ctx, end := tracing.StartSpan(ctx, "persist", attribute.String("branch", branch))
	defer func() { end(err) }()

	keys, err := s.store.Persist(ctx, branch, out.Snapshot)
	out.PersistedKeys = keys
	if err != nil {
		return err
	}
	out.Persisted = true
	return nil
}

func (s *Service) recordResult(out *Outcome) {
	for _, smp := range out.Samples {
		s.metrics.RecordMetricValue(smp.Name, string(smp.Unit), smp.CurrentValue, smp.BaselineValue)
	}
	for _, r := range out.Result.MetricResults {
		s.metrics.RecordRuleResult(r.Name, r.Status.String())
	}
	s.metrics.RecordGateStatus(out.Result.OverallStatus.String(), int(out.Result.OverallStatus))
}

// checkRuleTargets проверяет до сбора, что каждое правило ссылается на
// собираемую метрику.
func checkRuleTargets(specs []collector.Spec, rules []gate.ThresholdRule) error {
	names := make(map[string]struct{}, len(specs))
	for _, sp := range specs {
		names[sp.Name] = struct{}{}
	}
	for _, r := range rules {
		if _, ok := names[r.Metric]; !ok {
			return apperrors.NewConfigurationError(apperrors.ErrConfigUnknownMetric, r.Metric,
				"правило ссылается на метрику, которая не собирается", nil)
		}
	}
	return nil
}
