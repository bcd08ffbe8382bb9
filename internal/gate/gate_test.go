package gate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
)

func ptr(v float64) *float64 { return &v }

func snap(t *testing.T, rev string, metrics ...metric.Metric) *metric.Snapshot {
	t.Helper()
	s, err := metric.NewSnapshot(rev, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), metrics)
	require.NoError(t, err)
	return s
}

func TestStatus_OrderAndText(t *testing.T) {
	assert.True(t, StatusPass < StatusWarn && StatusWarn < StatusFail)
	assert.Equal(t, StatusPass, Max())
	assert.Equal(t, StatusWarn, Max(StatusPass, StatusWarn, StatusPass))
	assert.Equal(t, StatusFail, Max(StatusWarn, StatusFail, StatusPass))

	data, err := json.Marshal(map[string]Status{"s": StatusWarn})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"warn"}`, string(data))

	var s Status
	require.NoError(t, s.UnmarshalText([]byte("fail")))
	assert.Equal(t, StatusFail, s)
	assert.Error(t, s.UnmarshalText([]byte("unknown")))
}

func TestBuildMetricSamples(t *testing.T) {
	current := snap(t, "cur",
		metric.Metric{Name: "zeta", Value: 10, Unit: metric.UnitCount},
		metric.Metric{Name: "alpha", Value: 5, Unit: metric.UnitCount},
		metric.Metric{Name: "new", Value: 1, Unit: metric.UnitCount},
	)
	baseline := snap(t, "base",
		metric.Metric{Name: "zeta", Value: 8, Unit: metric.UnitCount},
		metric.Metric{Name: "alpha", Value: 0, Unit: metric.UnitCount},
		metric.Metric{Name: "gone", Value: 3, Unit: metric.UnitCount},
	)

	samples := BuildMetricSamples(current, baseline)
	require.Len(t, samples, 3)
	assert.Equal(t, []string{"alpha", "new", "zeta"}, []string{samples[0].Name, samples[1].Name, samples[2].Name})

	// нулевой baseline: разница есть, процента нет
	require.NotNil(t, samples[0].AbsoluteDelta)
	assert.Equal(t, 5.0, *samples[0].AbsoluteDelta)
	assert.Nil(t, samples[0].PercentDelta)

	// новая метрика без baseline
	assert.Nil(t, samples[1].BaselineValue)
	assert.Nil(t, samples[1].AbsoluteDelta)
	assert.Nil(t, samples[1].PercentDelta)

	require.NotNil(t, samples[2].PercentDelta)
	assert.InDelta(t, 25.0, *samples[2].PercentDelta, 1e-9)

	removed := RemovedMetrics(current, baseline)
	require.Len(t, removed, 1)
	assert.Equal(t, "gone", removed[0].Name)
}

func TestBuildMetricSamples_NoBaseline(t *testing.T) {
	current := snap(t, "cur", metric.Metric{Name: "a", Value: 1, Unit: metric.UnitBytes})
	samples := BuildMetricSamples(current, nil)
	require.Len(t, samples, 1)
	assert.False(t, samples[0].HasBaseline())
	assert.Empty(t, RemovedMetrics(current, nil))
}

func TestScenarioA_PercentIncreaseFails(t *testing.T) {
	current := snap(t, "cur", metric.Metric{Name: "bundle_size", Value: 105000, Unit: metric.UnitBytes})
	baseline := snap(t, "base", metric.Metric{Name: "bundle_size", Value: 100000, Unit: metric.UnitBytes})
	samples := BuildMetricSamples(current, baseline)

	res, err := EvaluateQualityGate(samples, []ThresholdRule{{
		Metric:             "bundle_size",
		MaxIncreasePercent: ptr(3),
		Direction:          metric.LowerIsBetter,
		Severity:           SeverityFail,
	}}, NewBaselineInfo("ns/branch/main", baseline))
	require.NoError(t, err)

	assert.Equal(t, StatusFail, res.OverallStatus)
	require.Len(t, res.MetricResults, 1)
	mr := res.MetricResults[0]
	assert.Equal(t, StatusFail, mr.Status)
	assert.Contains(t, mr.Reason, "+5.0%")
	assert.Contains(t, mr.Reason, "3.0%")
	assert.Equal(t, []MetricVerdict{{Name: "bundle_size", Status: StatusFail}}, res.Metrics)
	assert.True(t, res.Baseline.Found)
	require.NotNil(t, res.Baseline.Revision)
	assert.Equal(t, "base", *res.Baseline.Revision)
}

func TestScenarioB_NoBaselinePasses(t *testing.T) {
	current := snap(t, "cur", metric.Metric{Name: "test_count", Value: 420, Unit: metric.UnitCount})
	samples := BuildMetricSamples(current, nil)

	res, err := EvaluateQualityGate(samples, []ThresholdRule{{
		Metric:             "test_count",
		MaxIncreasePercent: ptr(10),
		Direction:          metric.HigherIsBetter,
	}}, NewBaselineInfo("ns/branch/main", nil))
	require.NoError(t, err)

	assert.Equal(t, StatusPass, res.OverallStatus)
	require.Len(t, res.MetricResults, 1)
	assert.Equal(t, StatusPass, res.MetricResults[0].Status)
	assert.Equal(t, ReasonNoBaseline, res.MetricResults[0].Reason)
	assert.False(t, res.Baseline.Found)
	assert.Nil(t, res.Baseline.Revision)
}

func TestScenarioC_UnknownMetricIsConfigurationError(t *testing.T) {
	current := snap(t, "cur", metric.Metric{Name: "build_time_ms", Value: 100, Unit: metric.UnitDurationMs})

	res, err := EvaluateQualityGate(BuildMetricSamples(current, nil), []ThresholdRule{{
		Metric:      "coverage_pct",
		MaxAbsolute: ptr(80),
		Direction:   metric.HigherIsBetter,
	}}, BaselineInfo{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Equal(t, apperrors.ErrConfigUnknownMetric, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "coverage_pct")
}

func TestScenarioD_WarnAndPassGiveWarn(t *testing.T) {
	current := snap(t, "cur", metric.Metric{Name: "build_time_ms", Value: 1300, Unit: metric.UnitDurationMs})
	baseline := snap(t, "base", metric.Metric{Name: "build_time_ms", Value: 1000, Unit: metric.UnitDurationMs})

	res, err := EvaluateQualityGate(BuildMetricSamples(current, baseline), []ThresholdRule{
		{Metric: "build_time_ms", MaxIncreasePercent: ptr(10), Severity: SeverityWarn},
		{Metric: "build_time_ms", MaxIncreasePercent: ptr(50), Severity: SeverityFail},
	}, NewBaselineInfo("k", baseline))
	require.NoError(t, err)

	require.Len(t, res.MetricResults, 2)
	assert.Equal(t, StatusWarn, res.MetricResults[0].Status)
	assert.Equal(t, StatusPass, res.MetricResults[1].Status)
	assert.Equal(t, []MetricVerdict{{Name: "build_time_ms", Status: StatusWarn}}, res.Metrics)
	assert.Equal(t, StatusWarn, res.OverallStatus)
	// направление по умолчанию для длительности
	assert.Equal(t, metric.LowerIsBetter, res.MetricResults[0].Rule.Direction)
}

func TestEvaluate_Rules(t *testing.T) {
	tests := []struct {
		name       string
		current    float64
		baseline   *float64
		unit       metric.UnitType
		rule       ThresholdRule
		wantStatus Status
		wantReason string
	}{
		{
			name:       "потолок без baseline применяется",
			current:    2048,
			unit:       metric.UnitBytes,
			rule:       ThresholdRule{MaxAbsolute: ptr(1024), MaxIncreasePercent: ptr(5)},
			wantStatus: StatusFail,
			wantReason: "значение 2 KB превышает максимум 1 KB; " + ReasonNoBaseline,
		},
		{
			name:       "минимум для higher_is_better",
			current:    79.5,
			unit:       metric.UnitPercentage,
			rule:       ThresholdRule{MaxAbsolute: ptr(80), Direction: metric.HigherIsBetter, Severity: SeverityWarn},
			wantStatus: StatusWarn,
			wantReason: "значение 79.5% ниже минимума 80.0%",
		},
		{
			name:       "рост higher_is_better не нарушение",
			current:    90,
			baseline:   ptr(80),
			unit:       metric.UnitPercentage,
			rule:       ThresholdRule{MaxIncreasePercent: ptr(1), Direction: metric.HigherIsBetter},
			wantStatus: StatusPass,
		},
		{
			name:       "падение higher_is_better сверх процента",
			current:    70,
			baseline:   ptr(80),
			unit:       metric.UnitPercentage,
			rule:       ThresholdRule{MaxIncreasePercent: ptr(10), Direction: metric.HigherIsBetter},
			wantStatus: StatusFail,
		},
		{
			name:       "ровно на границе проходит",
			current:    110,
			baseline:   ptr(100),
			unit:       metric.UnitDurationMs,
			rule:       ThresholdRule{MaxIncreasePercent: ptr(10)},
			wantStatus: StatusPass,
		},
		{
			name:       "нулевой baseline пропускает процент",
			current:    5,
			baseline:   ptr(0),
			unit:       metric.UnitCount,
			rule:       ThresholdRule{MaxIncreasePercent: ptr(1), Direction: metric.LowerIsBetter},
			wantStatus: StatusPass,
			wantReason: ReasonZeroBaseline,
		},
		{
			name:       "нулевой baseline и maxDelta",
			current:    5,
			baseline:   ptr(0),
			unit:       metric.UnitCount,
			rule:       ThresholdRule{MaxIncreasePercent: ptr(1), MaxDelta: ptr(2), Direction: metric.LowerIsBetter},
			wantStatus: StatusFail,
		},
		{
			name:       "допуск maxDelta для higher_is_better",
			current:    99.6,
			baseline:   ptr(100),
			unit:       metric.UnitPercentage,
			rule:       ThresholdRule{MaxDelta: ptr(0.5), Direction: metric.HigherIsBetter},
			wantStatus: StatusPass,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.rule.Metric = "m"
			sample := MetricSample{Name: "m", Unit: tt.unit, CurrentValue: tt.current, BaselineValue: tt.baseline}
			if tt.baseline != nil {
				d := tt.current - *tt.baseline
				sample.AbsoluteDelta = &d
				if *tt.baseline != 0 {
					p := d / *tt.baseline * 100
					sample.PercentDelta = &p
				}
			}

			res, err := EvaluateQualityGate([]MetricSample{sample}, []ThresholdRule{tt.rule}, BaselineInfo{Found: tt.baseline != nil})
			require.NoError(t, err)
			require.Len(t, res.MetricResults, 1)
			assert.Equal(t, tt.wantStatus, res.MetricResults[0].Status, res.MetricResults[0].Reason)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, res.MetricResults[0].Reason)
			}
		})
	}
}

func TestEvaluate_InvalidRules(t *testing.T) {
	samples := []MetricSample{
		{Name: "count", Unit: metric.UnitCount, CurrentValue: 1},
		{Name: "size", Unit: metric.UnitBytes, CurrentValue: 1},
	}
	tests := []struct {
		name string
		rule ThresholdRule
	}{
		{name: "нет границ", rule: ThresholdRule{Metric: "size"}},
		{name: "нет направления для count", rule: ThresholdRule{Metric: "count", MaxAbsolute: ptr(1)}},
		{name: "неизвестное направление", rule: ThresholdRule{Metric: "size", MaxAbsolute: ptr(1), Direction: "sideways"}},
		{name: "неизвестная severity", rule: ThresholdRule{Metric: "size", MaxAbsolute: ptr(1), Severity: "critical"}},
		{name: "отрицательный процент", rule: ThresholdRule{Metric: "size", MaxIncreasePercent: ptr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvaluateQualityGate(samples, []ThresholdRule{tt.rule}, BaselineInfo{})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrConfigInvalidRule, apperrors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.rule.Metric)
		})
	}
}

func TestEvaluate_EmptyRulesPass(t *testing.T) {
	res, err := EvaluateQualityGate([]MetricSample{{Name: "a", Unit: metric.UnitCount, CurrentValue: 1}}, nil, BaselineInfo{})
	require.NoError(t, err)
	assert.Equal(t, StatusPass, res.OverallStatus)
	assert.Empty(t, res.MetricResults)
	assert.Empty(t, res.Metrics)
}

func TestEvaluate_DeterministicOrdering(t *testing.T) {
	current := snap(t, "cur",
		metric.Metric{Name: "b", Value: 200, Unit: metric.UnitBytes},
		metric.Metric{Name: "a", Value: 100, Unit: metric.UnitBytes},
	)
	baseline := snap(t, "base",
		metric.Metric{Name: "b", Value: 100, Unit: metric.UnitBytes},
		metric.Metric{Name: "a", Value: 100, Unit: metric.UnitBytes},
	)
	rules := []ThresholdRule{
		{Metric: "b", MaxIncreasePercent: ptr(10), Severity: SeverityWarn},
		{Metric: "a", MaxDelta: ptr(0)},
		{Metric: "b", MaxAbsolute: ptr(1000)},
	}

	first, err := EvaluateQualityGate(BuildMetricSamples(current, baseline), rules, NewBaselineInfo("k", baseline))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := EvaluateQualityGate(BuildMetricSamples(current, baseline), rules, NewBaselineInfo("k", baseline))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	names := make([]string, 0, len(first.MetricResults))
	for _, r := range first.MetricResults {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"a", "b", "b"}, names)
	// порядок правил одной метрики сохраняется
	assert.NotNil(t, first.MetricResults[1].Rule.MaxIncreasePercent)
	assert.NotNil(t, first.MetricResults[2].Rule.MaxAbsolute)
	assert.Equal(t, StatusWarn, first.OverallStatus)
}

// Ухудшение текущего значения при прочих равных не улучшает статус.
func TestEvaluate_Monotonic(t *testing.T) {
	rule := ThresholdRule{Metric: "size", MaxIncreasePercent: ptr(5), MaxAbsolute: ptr(150)}
	base := ptr(100.0)
	prev := StatusPass
	for cur := 90.0; cur <= 200; cur += 5 {
		d := cur - *base
		p := d / *base * 100
		sample := MetricSample{Name: "size", Unit: metric.UnitBytes, CurrentValue: cur, BaselineValue: base, AbsoluteDelta: &d, PercentDelta: &p}
		res, err := EvaluateQualityGate([]MetricSample{sample}, []ThresholdRule{rule}, BaselineInfo{Found: true})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.OverallStatus, prev, "current=%v", cur)
		prev = res.OverallStatus
	}
	assert.Equal(t, StatusFail, prev)
}
