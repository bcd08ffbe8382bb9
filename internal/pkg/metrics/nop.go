package metrics

import (
	"context"
	"time"
)

// NopCollector — Collector, который ничего не делает.
type NopCollector struct{}

// NewNopCollector создаёт NopCollector.
func NewNopCollector() *NopCollector {
	return &NopCollector{}
}

func (c *NopCollector) RecordCommand(string, time.Duration, bool) {}

func (c *NopCollector) RecordMetricValue(string, string, float64, *float64) {}

func (c *NopCollector) RecordRuleResult(string, string) {}

func (c *NopCollector) RecordGateStatus(string, int) {}

// Push всегда возвращает nil.
func (c *NopCollector) Push(context.Context) error {
	return nil
}
