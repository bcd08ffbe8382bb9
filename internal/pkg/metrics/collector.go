// Package metrics собирает показатели прогонов quality gate и отправляет их
// в Prometheus Pushgateway.
//
// NewCollector выбирает реализацию по конфигурации: PrometheusCollector при
// включённых метриках, NopCollector иначе.
package metrics

import (
	"context"
	"time"
)

// Collector определяет интерфейс для сбора метрик.
type Collector interface {
	// RecordCommand записывает завершение команды CLI.
	RecordCommand(command string, duration time.Duration, success bool)

	// RecordMetricValue записывает текущее значение отслеживаемой метрики
	// и, если есть, значение baseline.
	RecordMetricValue(name, unit string, current float64, baseline *float64)

	// RecordRuleResult учитывает результат одного правила quality gate.
	RecordRuleResult(metricName, status string)

	// RecordGateStatus записывает итоговый статус: 0 pass, 1 warn, 2 fail.
	RecordGateStatus(status string, level int)

	// Push отправляет метрики в Pushgateway.
	// Ошибки отправки логируются, все реализации возвращают nil.
	Push(ctx context.Context) error
}
