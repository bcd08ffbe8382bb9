package unitfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
)

// ParseValue выполняет обратное преобразование строки, полученной из FormatValue.
// Для count, percentage и ratio преобразование без потерь в пределах точности
// форматирования. Для bytes и duration_ms результат совпадает с исходным значением
// с точностью до округления суффикса.
func ParseValue(s string, unit metric.UnitType) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case SentinelNaN:
		return math.NaN(), nil
	case SentinelPosInf:
		return math.Inf(1), nil
	case SentinelNegInf:
		return math.Inf(-1), nil
	}

	switch unit {
	case metric.UnitBytes:
		return parseBytes(s)
	case metric.UnitDurationMs:
		return parseDuration(s)
	case metric.UnitPercentage:
		return parseNumber(strings.TrimSuffix(s, "%"))
	case metric.UnitCount:
		return parseNumber(strings.ReplaceAll(s, ",", ""))
	default:
		return parseNumber(s)
	}
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "+"), 64)
	if err != nil {
		return 0, fmt.Errorf("не удалось разобрать число %q: %w", s, err)
	}
	return v, nil
}

func parseBytes(s string) (float64, error) {
	suffixes := []struct {
		suffix string
		scale  float64
	}{
		{" GB", gib},
		{" MB", mib},
		{" KB", kib},
		{" B", 1},
	}
	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			v, err := parseNumber(strings.TrimSuffix(s, sf.suffix))
			if err != nil {
				return 0, err
			}
			return v * sf.scale, nil
		}
	}
	return parseNumber(s)
}

func parseDuration(s string) (float64, error) {
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")

	var v float64
	switch {
	case strings.HasSuffix(body, "ms"):
		n, err := parseNumber(strings.TrimSuffix(body, "ms"))
		if err != nil {
			return 0, err
		}
		v = n
	case strings.Contains(body, "m "):
		var minutes, seconds int64
		if _, err := fmt.Sscanf(body, "%dm %ds", &minutes, &seconds); err != nil {
			return 0, fmt.Errorf("не удалось разобрать длительность %q: %w", s, err)
		}
		v = float64(minutes)*msPerMinute + float64(seconds)*msPerSecond
	case strings.HasSuffix(body, "s"):
		n, err := parseNumber(strings.TrimSuffix(body, "s"))
		if err != nil {
			return 0, err
		}
		v = n * msPerSecond
	default:
		n, err := parseNumber(body)
		if err != nil {
			return 0, err
		}
		v = n
	}
	if neg {
		v = -v
	}
	return v, nil
}
