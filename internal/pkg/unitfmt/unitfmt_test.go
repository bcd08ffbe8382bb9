package unitfmt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
)

func TestFormatValue_Bytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{100000, "97.66 KB"},
		{105000, "102.54 KB"},
		{1024 * 1024, "1 MB"},
		{5.25 * 1024 * 1024, "5.25 MB"},
		{1024 * 1024 * 1024, "1 GB"},
		{3.5 * 1024 * 1024 * 1024 * 1024, "3584 GB"},
		{-2048, "-2 KB"},
		{1023.4, "1023 B"},
		{1023.6, "1 KB"},
		{1048575, "1 MB"},
		{1073741823, "1 GB"},
		{-0.4, "0 B"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in, metric.UnitBytes))
		})
	}
}

func TestFormatValue_Duration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0ms"},
		{120, "120ms"},
		{999.4, "999ms"},
		{1000, "1s"},
		{1500, "1.5s"},
		{12340, "12.34s"},
		{999.6, "1s"},
		{59994, "59.99s"},
		{59999, "1m 0s"},
		{59999.6, "1m 0s"},
		{60000, "1m 0s"},
		{125000, "2m 5s"},
		{3 * 3600 * 1000, "180m 0s"},
		{-120, "-120ms"},
		{-0.3, "0ms"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in, metric.UnitDurationMs))
		})
	}
}

func TestFormatValue_OtherUnits(t *testing.T) {
	assert.Equal(t, "87.5%", FormatValue(87.5, metric.UnitPercentage))
	assert.Equal(t, "100.0%", FormatValue(100, metric.UnitPercentage))
	assert.Equal(t, "0.25", FormatValue(0.25, metric.UnitRatio))
	assert.Equal(t, "0.333", FormatValue(1.0/3, metric.UnitRatio))
	assert.Equal(t, "1", FormatValue(1, metric.UnitRatio))
	assert.Equal(t, "420", FormatValue(420, metric.UnitCount))
	assert.Equal(t, "1,234,567", FormatValue(1234567, metric.UnitCount))
	assert.Equal(t, "-1,000", FormatValue(-1000, metric.UnitCount))
	assert.Equal(t, "3", FormatValue(2.6, metric.UnitCount))
	assert.Equal(t, "0", FormatValue(-0.3, metric.UnitCount))
	assert.Equal(t, "0.0%", FormatValue(-0.04, metric.UnitPercentage))
	assert.Equal(t, "0", FormatValue(-0.0001, metric.UnitRatio))
}

func TestFormatValue_NonFinite(t *testing.T) {
	for _, unit := range metric.Units() {
		t.Run(string(unit), func(t *testing.T) {
			assert.Equal(t, SentinelNaN, FormatValue(math.NaN(), unit))
			assert.Equal(t, SentinelPosInf, FormatValue(math.Inf(1), unit))
			assert.Equal(t, SentinelNegInf, FormatValue(math.Inf(-1), unit))
			assert.Equal(t, SentinelNaN, FormatDelta(math.NaN(), unit))
		})
	}
	assert.Equal(t, SentinelPosInf, FormatPercentDelta(math.Inf(1)))
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+1.5 KB", FormatDelta(1536, metric.UnitBytes))
	assert.Equal(t, "-120ms", FormatDelta(-120, metric.UnitDurationMs))
	assert.Equal(t, "+2.5%", FormatDelta(2.5, metric.UnitPercentage))
	assert.Equal(t, "+150", FormatDelta(150, metric.UnitCount))
	assert.Equal(t, "-1,500", FormatDelta(-1500, metric.UnitCount))
	assert.Equal(t, "+0 B", FormatDelta(0, metric.UnitBytes))
}

// TestFormatDelta_RoundsToZero проверяет, что околонулевое изменение
// выводится как "+0" в любой единице.
func TestFormatDelta_RoundsToZero(t *testing.T) {
	tests := []struct {
		unit metric.UnitType
		in   float64
		want string
	}{
		{metric.UnitCount, -0.3, "+0"},
		{metric.UnitBytes, -0.4, "+0 B"},
		{metric.UnitDurationMs, -0.2, "+0ms"},
		{metric.UnitPercentage, -0.01, "+0.0%"},
		{metric.UnitCount, -0.6, "-1"},
		{metric.UnitBytes, -1023.6, "-1 KB"},
	}
	for _, tt := range tests {
		t.Run(string(tt.unit)+" "+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDelta(tt.in, tt.unit))
		})
	}
}

func TestFormatPercentDelta(t *testing.T) {
	assert.Equal(t, "+5.0%", FormatPercentDelta(5))
	assert.Equal(t, "-2.5%", FormatPercentDelta(-2.5))
	assert.Equal(t, "+0.0%", FormatPercentDelta(0))
	assert.Equal(t, "+0.0%", FormatPercentDelta(-0.04))
}

func TestParseValue_RoundTrip(t *testing.T) {
	tests := []struct {
		unit metric.UnitType
		in   float64
	}{
		{metric.UnitCount, 0},
		{metric.UnitCount, 420},
		{metric.UnitCount, 1234567},
		{metric.UnitCount, -98765},
		{metric.UnitPercentage, 87.5},
		{metric.UnitPercentage, 0.1},
		{metric.UnitRatio, 0.125},
		{metric.UnitBytes, 512},
		{metric.UnitBytes, 1536},
		{metric.UnitDurationMs, 125000},
		{metric.UnitDurationMs, 1500},
		{metric.UnitDurationMs, 120},
	}
	for _, tt := range tests {
		formatted := FormatValue(tt.in, tt.unit)
		t.Run(string(tt.unit)+" "+formatted, func(t *testing.T) {
			parsed, err := ParseValue(formatted, tt.unit)
			require.NoError(t, err)
			assert.InDelta(t, tt.in, parsed, 1e-9)
			assert.Equal(t, formatted, FormatValue(parsed, tt.unit))
		})
	}
}

func TestParseValue_Sentinels(t *testing.T) {
	v, err := ParseValue("NaN", metric.UnitCount)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = ParseValue("-Inf", metric.UnitBytes)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))
}

func TestParseValue_Invalid(t *testing.T) {
	_, err := ParseValue("lots", metric.UnitCount)
	assert.Error(t, err)
	_, err = ParseValue("abc KB", metric.UnitBytes)
	assert.Error(t, err)
}
