// Package unitfmt форматирует значения метрик и их изменения с учётом единицы измерения.
//
// Границы переключения суффиксов фиксированы и покрыты тестами, т.к. текстовые
// отчёты сравниваются построчно:
//
//	bytes:       |v| < 1024 → "N B"; < 1024² → KB; < 1024³ → MB; иначе GB.
//	             Масштабированное значение — не более двух знаков после точки,
//	             хвостовые нули отбрасываются ("1.5 KB", "2 MB", "97.66 KB").
//	duration_ms: |v| < 1000 → "Nms"; < 60000 → секунды с двумя знаками ("1.5s");
//	             иначе "Xm Ys" (секунды округляются, часы сворачиваются в минуты).
//
// Границы проверяются по округлённому значению: если округление достигает
// 1024 (bytes), 1000 мс или 60 с, выбирается следующий суффикс.
// Величина, округлившаяся до нуля, выводится без знака "-".
//	percentage:  один знак после точки ("87.5%").
//	ratio:       не более трёх знаков после точки ("0.25").
//	count:       целое с разделителем тысяч ("1,234,567").
//
// NaN и бесконечности выводятся как "NaN", "+Inf", "-Inf".
package unitfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
)

// Строки-заглушки для нечисловых значений.
const (
	SentinelNaN    = "NaN"
	SentinelPosInf = "+Inf"
	SentinelNegInf = "-Inf"
)

const (
	kib = 1024.0
	mib = kib * 1024
	gib = mib * 1024

	msPerSecond = 1000.0
	msPerMinute = 60 * msPerSecond
)

// printer форматирует целые с разделителями тысяч. Локаль фиксирована,
// чтобы вывод не зависел от окружения CI-агента.
var printer = message.NewPrinter(language.English)

// FormatValue возвращает человекочитаемое представление значения.
// Знак "-" ставится, только если округлённая величина не нулевая.
func FormatValue(v float64, unit metric.UnitType) string {
	if s, ok := sentinel(v); ok {
		return s
	}
	s := formatMagnitude(math.Abs(v), unit)
	if v < 0 && !isZeroRendering(s) {
		return "-" + s
	}
	return s
}

// FormatDelta возвращает изменение значения с явным знаком: "+1.5 KB", "-120ms".
// Изменение, округлившееся до нуля, выводится как "+0".
func FormatDelta(d float64, unit metric.UnitType) string {
	if s, ok := sentinel(d); ok {
		return s
	}
	formatted := FormatValue(d, unit)
	if !strings.HasPrefix(formatted, "-") {
		return "+" + formatted
	}
	return formatted
}

// FormatPercentDelta форматирует относительное изменение в процентах: "+5.0%".
func FormatPercentDelta(p float64) string {
	if s, ok := sentinel(p); ok {
		return s
	}
	formatted := strconv.FormatFloat(math.Abs(p), 'f', 1, 64)
	if p < 0 && !isZeroRendering(formatted) {
		return "-" + formatted + "%"
	}
	return "+" + formatted + "%"
}

func sentinel(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return SentinelNaN, true
	case math.IsInf(v, 1):
		return SentinelPosInf, true
	case math.IsInf(v, -1):
		return SentinelNegInf, true
	}
	return "", false
}

// formatMagnitude форматирует неотрицательную величину без знака.
func formatMagnitude(abs float64, unit metric.UnitType) string {
	switch unit {
	case metric.UnitBytes:
		return formatBytes(abs)
	case metric.UnitDurationMs:
		return formatDuration(abs)
	case metric.UnitPercentage:
		return strconv.FormatFloat(abs, 'f', 1, 64) + "%"
	case metric.UnitRatio:
		return trimDecimal(abs, 3)
	case metric.UnitCount:
		return formatCount(abs)
	default:
		return trimDecimal(abs, 2)
	}
}

var byteUnits = []struct {
	div    float64
	suffix string
}{
	{kib, "KB"},
	{mib, "MB"},
}

// formatBytes выбирает суффикс по уже округлённому значению: 1023.6 B и
// 1048575 B выводятся как "1 KB" и "1 MB", а не "1024 B" и "1024 KB".
func formatBytes(abs float64) string {
	if r := math.Round(abs); r < kib {
		return strconv.FormatFloat(r, 'f', 0, 64) + " B"
	}
	for _, u := range byteUnits {
		if scaled := roundTo(abs/u.div, 2); scaled < kib {
			return trimDecimal(scaled, 2) + " " + u.suffix
		}
	}
	return trimDecimal(abs/gib, 2) + " GB"
}

func formatDuration(abs float64) string {
	if r := math.Round(abs); r < msPerSecond {
		return strconv.FormatFloat(r, 'f', 0, 64) + "ms"
	}
	if sec := roundTo(abs/msPerSecond, 2); sec < 60 {
		return trimDecimal(sec, 2) + "s"
	}
	total := int64(math.Round(abs / msPerSecond))
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

func formatCount(abs float64) string {
	r := math.Round(abs)
	if r < math.MaxInt64/2 {
		return printer.Sprintf("%d", int64(r))
	}
	return printer.Sprintf("%.0f", r)
}

func roundTo(v float64, prec int) float64 {
	p := math.Pow10(prec)
	return math.Round(v*p) / p
}

// isZeroRendering сообщает, что в строке нет ненулевых цифр ("0 B", "0.0%").
func isZeroRendering(s string) bool {
	for _, r := range s {
		if r >= '1' && r <= '9' {
			return false
		}
	}
	return true
}

// trimDecimal округляет до prec знаков и отбрасывает хвостовые нули.
func trimDecimal(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
