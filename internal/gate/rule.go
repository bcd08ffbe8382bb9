package gate

import (
	"fmt"
	"math"
	"strings"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
)

// Severity — статус, который получает нарушенное правило.
type Severity string

// Допустимые значения severity. Пустое значение означает fail.
const (
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// ParseSeverity разбирает severity. "warning" и "error" — синонимы.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail", "error":
		return SeverityFail, nil
	case "warn", "warning":
		return SeverityWarn, nil
	default:
		return "", fmt.Errorf("неизвестная severity %q, допустимы: warn, fail", s)
	}
}

// Status возвращает статус нарушения.
func (s Severity) Status() Status {
	if s == SeverityWarn {
		return StatusWarn
	}
	return StatusFail
}

// ThresholdRule — пороговое правило для одной метрики.
// На одну метрику может приходиться несколько правил, все они должны пройти.
type ThresholdRule struct {
	Metric string `json:"metric" yaml:"metric"`
	// MaxAbsolute — граница значения без учёта baseline: потолок для
	// lower_is_better, минимум для higher_is_better.
	MaxAbsolute *float64 `json:"maxAbsolute,omitempty" yaml:"maxAbsolute,omitempty"`
	// MaxIncreasePercent — допустимое ухудшение относительно baseline в процентах.
	MaxIncreasePercent *float64 `json:"maxIncreasePercent,omitempty" yaml:"maxIncreasePercent,omitempty"`
	// MaxDelta — допустимое ухудшение относительно baseline в единицах метрики.
	MaxDelta  *float64         `json:"maxDelta,omitempty" yaml:"maxDelta,omitempty"`
	Direction metric.Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
	Severity  Severity         `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// hasThreshold сообщает, задана ли хотя бы одна граница.
func (r ThresholdRule) hasThreshold() bool {
	return r.MaxAbsolute != nil || r.MaxIncreasePercent != nil || r.MaxDelta != nil
}

// Resolve проверяет правило для метрики с единицей unit и возвращает копию
// с заполненными направлением и severity.
func (r ThresholdRule) Resolve(unit metric.UnitType) (ThresholdRule, error) {
	invalid := func(msg string) error {
		return apperrors.NewConfigurationError(apperrors.ErrConfigInvalidRule, r.Metric, msg, nil)
	}

	if strings.TrimSpace(r.Metric) == "" {
		return r, invalid("в правиле не указана метрика")
	}
	if !r.hasThreshold() {
		return r, invalid("в правиле не задано ни одной границы (maxAbsolute, maxIncreasePercent, maxDelta)")
	}
	for _, b := range []struct {
		name string
		v    *float64
	}{
		{"maxAbsolute", r.MaxAbsolute},
		{"maxIncreasePercent", r.MaxIncreasePercent},
		{"maxDelta", r.MaxDelta},
	} {
		if b.v != nil && (math.IsNaN(*b.v) || math.IsInf(*b.v, 0)) {
			return r, invalid(fmt.Sprintf("%s должен быть конечным числом", b.name))
		}
	}
	if r.MaxIncreasePercent != nil && *r.MaxIncreasePercent < 0 {
		return r, invalid("maxIncreasePercent не может быть отрицательным")
	}
	if r.MaxDelta != nil && *r.MaxDelta < 0 {
		return r, invalid("maxDelta не может быть отрицательным")
	}

	sev, err := ParseSeverity(string(r.Severity))
	if err != nil {
		return r, invalid(err.Error())
	}
	r.Severity = sev

	switch {
	case r.Direction == "":
		dir, ok := unit.DefaultDirection()
		if !ok {
			return r, invalid(fmt.Sprintf("для единицы %s направление не задано по умолчанию, укажите direction", unit))
		}
		r.Direction = dir
	case !r.Direction.Valid():
		return r, invalid(fmt.Sprintf("неизвестное направление %q, допустимы: %s, %s",
			r.Direction, metric.LowerIsBetter, metric.HigherIsBetter))
	}
	return r, nil
}
