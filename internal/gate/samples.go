package gate

import (
	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
)

// MetricSample — пара «текущее значение / baseline» одной метрики.
// Без baseline все необязательные поля равны nil.
type MetricSample struct {
	Name          string          `json:"name"`
	Unit          metric.UnitType `json:"unit"`
	CurrentValue  float64         `json:"currentValue"`
	BaselineValue *float64        `json:"baselineValue,omitempty"`
	AbsoluteDelta *float64        `json:"absoluteDelta,omitempty"`
	// PercentDelta не определён при нулевом или отсутствующем baseline.
	PercentDelta *float64 `json:"percentDelta,omitempty"`
}

// HasBaseline сообщает, есть ли у метрики значение в baseline.
func (s MetricSample) HasBaseline() bool { return s.BaselineValue != nil }

// BuildMetricSamples сопоставляет метрики текущего снимка с baseline.
// Результат упорядочен по имени метрики. baseline может быть nil.
func BuildMetricSamples(current, baseline *metric.Snapshot) []MetricSample {
	cur := current.Sorted()
	samples := make([]MetricSample, 0, len(cur))
	for _, m := range cur {
		s := MetricSample{Name: m.Name, Unit: m.Unit, CurrentValue: m.Value}
		if prev, ok := baseline.Get(m.Name); ok {
			base := prev.Value
			delta := m.Value - base
			s.BaselineValue = &base
			s.AbsoluteDelta = &delta
			if base != 0 {
				pct := delta / base * 100
				s.PercentDelta = &pct
			}
		}
		samples = append(samples, s)
	}
	return samples
}

// RemovedMetrics возвращает метрики, которые есть только в baseline.
// Они выводятся в отчёте и никогда не влияют на статус.
func RemovedMetrics(current, baseline *metric.Snapshot) []metric.Metric {
	var removed []metric.Metric
	for _, m := range baseline.Sorted() {
		if _, ok := current.Get(m.Name); !ok {
			removed = append(removed, m)
		}
	}
	return removed
}
