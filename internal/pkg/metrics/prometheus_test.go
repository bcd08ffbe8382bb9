package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
)

func testConfig(url string) Config {
	return Config{
		Enabled:        true,
		PushgatewayURL: url,
		JobName:        "unentropy",
		Timeout:        10 * time.Second,
		InstanceLabel:  "ci-runner",
	}
}

func gather(t *testing.T, c *PrometheusCollector) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labelsOf(m *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, l := range m.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	return labels
}

// TestPrometheusCollector_RecordCommand проверяет запись метрик команды.
func TestPrometheusCollector_RecordCommand(t *testing.T) {
	collector, err := NewPrometheusCollector(testConfig("http://localhost:9091"), logging.NewNopLogger())
	require.NoError(t, err)

	collector.RecordCommand("quality-gate", 1500*time.Millisecond, true)
	collector.RecordCommand("quality-gate", time.Second, false)

	found := gather(t, collector)
	require.Contains(t, found, "unentropy_command_duration_seconds")
	require.Contains(t, found, "unentropy_command_total")

	statuses := map[string]float64{}
	for _, m := range found["unentropy_command_total"].GetMetric() {
		l := labelsOf(m)
		assert.Equal(t, "quality-gate", l["command"])
		statuses[l["status"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"success": 1, "error": 1}, statuses)
}

// TestPrometheusCollector_GateMetrics проверяет метрики результата quality gate.
func TestPrometheusCollector_GateMetrics(t *testing.T) {
	collector, err := NewPrometheusCollector(testConfig("http://localhost:9091"), nil)
	require.NoError(t, err)

	base := 100000.0
	collector.RecordMetricValue("bundle_size", "bytes", 105000, &base)
	collector.RecordMetricValue("tests", "count", 42, nil)
	collector.RecordRuleResult("bundle_size", "fail")
	collector.RecordGateStatus("warn", 1)
	collector.RecordGateStatus("fail", 2)

	found := gather(t, collector)

	series := map[string]float64{}
	for _, m := range found["unentropy_tracked_metric_value"].GetMetric() {
		l := labelsOf(m)
		series[l["metric"]+"/"+l["series"]] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"bundle_size/current":  105000,
		"bundle_size/baseline": 100000,
		"tests/current":        42,
	}, series)

	// остаётся только последний статус
	gateMetrics := found["unentropy_gate_status"].GetMetric()
	require.Len(t, gateMetrics, 1)
	assert.Equal(t, "fail", labelsOf(gateMetrics[0])["status"])
	assert.Equal(t, 2.0, gateMetrics[0].GetGauge().GetValue())

	rules := found["unentropy_rule_results_total"].GetMetric()
	require.Len(t, rules, 1)
	assert.Equal(t, 1.0, rules[0].GetCounter().GetValue())
}

// TestPrometheusCollector_Push проверяет отправку метрик.
func TestPrometheusCollector_Push(t *testing.T) {
	var receivedMethod, receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	collector, err := NewPrometheusCollector(testConfig(server.URL), logging.NewNopLogger())
	require.NoError(t, err)
	collector.RecordCommand("track-metrics", time.Second, true)

	require.NoError(t, collector.Push(context.Background()))
	assert.Equal(t, http.MethodPut, receivedMethod)
	assert.True(t, strings.HasPrefix(receivedPath, "/metrics/job/unentropy"), receivedPath)
	assert.Contains(t, receivedPath, "instance/ci-runner")
}

// TestPrometheusCollector_PushError — ошибка Pushgateway не возвращается вызывающему.
// TestPrometheusCollector_PushGrouping проверяет дополнительные grouping labels.
func TestPrometheusCollector_PushGrouping(t *testing.T) {
	var receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Grouping = map[string]string{"namespace": "web-app", "branch": ""}
	collector, err := NewPrometheusCollector(cfg, logging.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, collector.Push(context.Background()))
	assert.Contains(t, receivedPath, "namespace/web-app")
	assert.NotContains(t, receivedPath, "branch")
}

func TestPrometheusCollector_PushError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	collector, err := NewPrometheusCollector(testConfig(server.URL), logging.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, collector.Push(context.Background()))
}

func TestPrometheusCollector_PushCancelled(t *testing.T) {
	collector, err := NewPrometheusCollector(testConfig("http://127.0.0.1:1"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, collector.Push(ctx))
}

func TestPrometheusCollector_InstanceLabel(t *testing.T) {
	cfg := testConfig("http://localhost:9091")
	cfg.InstanceLabel = ""
	collector, err := NewPrometheusCollector(cfg, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, collector.instance)
}

func TestNewCollector_Disabled(t *testing.T) {
	collector, err := NewCollector(Config{Enabled: false}, logging.NewNopLogger())
	require.NoError(t, err)

	_, isNop := collector.(*NopCollector)
	assert.True(t, isNop, "при disabled должен быть NopCollector")

	collector.RecordCommand("quality-gate", time.Second, true)
	collector.RecordMetricValue("m", "count", 1, nil)
	collector.RecordRuleResult("m", "pass")
	collector.RecordGateStatus("pass", 0)
	assert.NoError(t, collector.Push(context.Background()))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "корректная", mutate: func(*Config) {}},
		{name: "выключенная всегда корректна", mutate: func(c *Config) { *c = Config{} }},
		{name: "нет URL", mutate: func(c *Config) { c.PushgatewayURL = "" }, wantErr: ErrPushgatewayURLRequired},
		{name: "URL без схемы", mutate: func(c *Config) { c.PushgatewayURL = "pushgateway:9091" }, wantErr: ErrPushgatewayURLInvalid},
		{name: "нет job", mutate: func(c *Config) { c.JobName = "" }, wantErr: ErrJobNameRequired},
		{name: "нулевой таймаут", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "grouping namespace", mutate: func(c *Config) { c.Grouping = map[string]string{"namespace": "web"} }},
		{name: "grouping job", mutate: func(c *Config) { c.Grouping = map[string]string{"job": "x"} }, wantErr: ErrGroupingLabelInvalid},
		{name: "grouping с дефисом", mutate: func(c *Config) { c.Grouping = map[string]string{"name-space": "x"} }, wantErr: ErrGroupingLabelInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://localhost:9091")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "a_b", sanitizeLabel("a\nb"))
	assert.Len(t, []rune(sanitizeLabel(strings.Repeat("я", 200))), maxLabelLength)
}
