package gate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/unitfmt"
)

// ReasonNoBaseline — пояснение для проверок относительно baseline, пропущенных
// из-за его отсутствия.
const ReasonNoBaseline = "нет baseline для сравнения"

// ReasonZeroBaseline — пояснение для процентной проверки при нулевом baseline.
const ReasonZeroBaseline = "процентное изменение не определено при нулевом baseline"

// BaselineInfo описывает baseline, использованный при оценке.
type BaselineInfo struct {
	Found     bool       `json:"found"`
	Key       string     `json:"key,omitempty"`
	Revision  *string    `json:"revision,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// NewBaselineInfo строит BaselineInfo по найденному снимку. snap может быть nil.
func NewBaselineInfo(key string, snap *metric.Snapshot) BaselineInfo {
	info := BaselineInfo{Key: key}
	if snap == nil {
		return info
	}
	info.Found = true
	if snap.Revision != "" {
		rev := snap.Revision
		info.Revision = &rev
	}
	if !snap.Timestamp.IsZero() {
		ts := snap.Timestamp
		info.Timestamp = &ts
	}
	return info
}

// MetricEvaluationResult — итог применения одного правила к одной метрике.
type MetricEvaluationResult struct {
	Name   string        `json:"name"`
	Sample MetricSample  `json:"sample"`
	Rule   ThresholdRule `json:"rule"`
	Status Status        `json:"status"`
	// Reason позволяет восстановить вердикт по правилу и значениям.
	Reason string `json:"reason"`
}

// MetricVerdict — итоговый статус метрики по всем её правилам.
type MetricVerdict struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// QualityGateResult — результат оценки. Не изменяется после создания.
type QualityGateResult struct {
	OverallStatus  Status                   `json:"overallStatus"`
	MetricResults  []MetricEvaluationResult `json:"metricResults"`
	Metrics        []MetricVerdict          `json:"metrics"`
	RemovedMetrics []metric.Metric          `json:"removedMetrics,omitempty"`
	Baseline       BaselineInfo             `json:"baseline"`
}

// Failed возвращает результаты правил со статусом не ниже min.
func (r *QualityGateResult) Failed(min Status) []MetricEvaluationResult {
	var out []MetricEvaluationResult
	for _, mr := range r.MetricResults {
		if mr.Status >= min {
			out = append(out, mr)
		}
	}
	return out
}

// EvaluateQualityGate применяет правила к выборке.
//
// Правило для метрики, которой нет в выборке, и некорректное правило
// возвращают ConfigurationError без результата. Результаты упорядочены по
// имени метрики, порядок правил одной метрики сохраняется.
func EvaluateQualityGate(samples []MetricSample, rules []ThresholdRule, baseline BaselineInfo) (*QualityGateResult, error) {
	byName := make(map[string]MetricSample, len(samples))
	for _, s := range samples {
		if _, dup := byName[s.Name]; dup {
			return nil, apperrors.NewConfigurationError(apperrors.ErrConfigValidate, s.Name,
				"метрика повторяется в выборке", nil)
		}
		byName[s.Name] = s
	}

	resolved := make([]ThresholdRule, 0, len(rules))
	for _, rule := range rules {
		sample, ok := byName[rule.Metric]
		if !ok {
			return nil, apperrors.NewConfigurationError(apperrors.ErrConfigUnknownMetric, rule.Metric,
				"правило ссылается на метрику, которой нет в текущем сборе", nil)
		}
		r, err := rule.Resolve(sample.Unit)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	results := make([]MetricEvaluationResult, 0, len(resolved))
	for _, rule := range resolved {
		results = append(results, evaluateRule(byName[rule.Metric], rule))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	verdicts := make([]MetricVerdict, 0)
	for i := 0; i < len(results); {
		j := i
		status := StatusPass
		for ; j < len(results) && results[j].Name == results[i].Name; j++ {
			status = Max(status, results[j].Status)
		}
		verdicts = append(verdicts, MetricVerdict{Name: results[i].Name, Status: status})
		i = j
	}

	overall := StatusPass
	for _, v := range verdicts {
		overall = Max(overall, v.Status)
	}

	return &QualityGateResult{
		OverallStatus: overall,
		MetricResults: results,
		Metrics:       verdicts,
		Baseline:      baseline,
	}, nil
}

// evaluateRule применяет проверенное правило к выборке метрики.
func evaluateRule(s MetricSample, rule ThresholdRule) MetricEvaluationResult {
	lower := rule.Direction == metric.LowerIsBetter
	var (
		violated bool
		parts    []string
	)

	if rule.MaxAbsolute != nil {
		limit := *rule.MaxAbsolute
		cur, lim := unitfmt.FormatValue(s.CurrentValue, s.Unit), unitfmt.FormatValue(limit, s.Unit)
		switch {
		case lower && s.CurrentValue > limit:
			violated = true
			parts = append(parts, fmt.Sprintf("значение %s превышает максимум %s", cur, lim))
		case lower:
			parts = append(parts, fmt.Sprintf("значение %s не превышает максимум %s", cur, lim))
		case s.CurrentValue < limit:
			violated = true
			parts = append(parts, fmt.Sprintf("значение %s ниже минимума %s", cur, lim))
		default:
			parts = append(parts, fmt.Sprintf("значение %s не ниже минимума %s", cur, lim))
		}
	}

	relative := rule.MaxIncreasePercent != nil || rule.MaxDelta != nil
	switch {
	case relative && !s.HasBaseline():
		parts = append(parts, ReasonNoBaseline)
	case relative:
		base := *s.BaselineValue
		// worsening > 0 означает ухудшение в направлении правила
		worsening := s.CurrentValue - base
		if !lower {
			worsening = base - s.CurrentValue
		}
		change := describeChange(s)

		if rule.MaxIncreasePercent != nil {
			pct := *rule.MaxIncreasePercent
			if base == 0 {
				parts = append(parts, ReasonZeroBaseline)
			} else {
				allowed := math.Abs(base) * pct / 100
				limit := fmt.Sprintf("%.1f%%", pct)
				if worsening > allowed {
					violated = true
					parts = append(parts, fmt.Sprintf("%s: ухудшение больше допустимых %s", change, limit))
				} else {
					parts = append(parts, fmt.Sprintf("%s: в пределах допустимых %s", change, limit))
				}
			}
		}

		if rule.MaxDelta != nil {
			limit := unitfmt.FormatValue(*rule.MaxDelta, s.Unit)
			if worsening > *rule.MaxDelta {
				violated = true
				parts = append(parts, fmt.Sprintf("%s: ухудшение больше допустимых %s", change, limit))
			} else {
				parts = append(parts, fmt.Sprintf("%s: в пределах допустимых %s", change, limit))
			}
		}
	}

	status := StatusPass
	if violated {
		status = rule.Severity.Status()
	}
	return MetricEvaluationResult{
		Name:   s.Name,
		Sample: s,
		Rule:   rule,
		Status: status,
		Reason: strings.Join(parts, "; "),
	}
}

// describeChange описывает изменение относительно baseline: "97.66 KB → 102.54 KB (+4.88 KB, +5.0%)".
func describeChange(s MetricSample) string {
	delta := unitfmt.FormatDelta(*s.AbsoluteDelta, s.Unit)
	if s.PercentDelta != nil {
		delta += ", " + unitfmt.FormatPercentDelta(*s.PercentDelta)
	}
	return fmt.Sprintf("%s → %s (%s)",
		unitfmt.FormatValue(*s.BaselineValue, s.Unit),
		unitfmt.FormatValue(s.CurrentValue, s.Unit),
		delta)
}
