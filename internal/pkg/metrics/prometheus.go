package metrics

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/urlutil"
)

const namespace = "unentropy"

// PrometheusCollector собирает метрики в собственный registry и отправляет
// их в Pushgateway.
type PrometheusCollector struct {
	config   Config
	logger   logging.Logger
	registry *prometheus.Registry

	commandDuration *prometheus.HistogramVec
	commandTotal    *prometheus.CounterVec
	metricValue     *prometheus.GaugeVec
	ruleResults     *prometheus.CounterVec
	gateStatus      *prometheus.GaugeVec

	instance string
}

// NewPrometheusCollector создаёт PrometheusCollector.
func NewPrometheusCollector(config Config, logger logging.Logger) (*PrometheusCollector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	instance := config.InstanceLabel
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			logger.Warn("не удалось получить hostname для metrics instance label, используется 'unknown'",
				"error", err.Error())
			hostname = "unknown"
		}
		instance = hostname
	}

	registry := prometheus.NewRegistry()

	commandDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of command execution in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"command", "status"},
	)
	commandTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_total",
			Help:      "Total number of command executions",
		},
		[]string{"command", "status"},
	)
	metricValue := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_metric_value",
			Help:      "Collected value of a tracked metric",
		},
		[]string{"metric", "unit", "series"},
	)
	ruleResults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_results_total",
			Help:      "Quality gate rule results by status",
		},
		[]string{"metric", "status"},
	)
	gateStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_status",
			Help:      "Overall quality gate status: 0 pass, 1 warn, 2 fail",
		},
		[]string{"status"},
	)

	for _, c := range []prometheus.Collector{commandDuration, commandTotal, metricValue, ruleResults, gateStatus} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("ошибка регистрации метрики: %w", err)
		}
	}

	return &PrometheusCollector{
		config:          config,
		logger:          logger,
		registry:        registry,
		commandDuration: commandDuration,
		commandTotal:    commandTotal,
		metricValue:     metricValue,
		ruleResults:     ruleResults,
		gateStatus:      gateStatus,
		instance:        instance,
	}, nil
}

const maxLabelLength = 128

// sanitizeLabel заменяет управляющие символы и ограничивает длину значения label.
func sanitizeLabel(value string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, value)

	runes := []rune(clean)
	if len(runes) > maxLabelLength {
		return string(runes[:maxLabelLength])
	}
	return clean
}

// RecordCommand записывает длительность и результат команды.
func (c *PrometheusCollector) RecordCommand(command string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	command = sanitizeLabel(command)

	c.commandDuration.WithLabelValues(command, status).Observe(duration.Seconds())
	c.commandTotal.WithLabelValues(command, status).Inc()

	c.logger.Debug("metrics: command ended",
		"command", command,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// RecordMetricValue записывает значения метрики в серии current и baseline.
func (c *PrometheusCollector) RecordMetricValue(name, unit string, current float64, baseline *float64) {
	name, unit = sanitizeLabel(name), sanitizeLabel(unit)
	c.metricValue.WithLabelValues(name, unit, "current").Set(current)
	if baseline != nil {
		c.metricValue.WithLabelValues(name, unit, "baseline").Set(*baseline)
	}
}

// RecordRuleResult увеличивает счётчик результатов правил.
func (c *PrometheusCollector) RecordRuleResult(metricName, status string) {
	c.ruleResults.WithLabelValues(sanitizeLabel(metricName), status).Inc()
}

// RecordGateStatus записывает итоговый статус прогона.
func (c *PrometheusCollector) RecordGateStatus(status string, level int) {
	c.gateStatus.Reset()
	c.gateStatus.WithLabelValues(status).Set(float64(level))
}

// Push отправляет метрики в Pushgateway.
// Возвращает nil даже при ошибке: недоступность Pushgateway не влияет на вердикт.
func (c *PrometheusCollector) Push(ctx context.Context) error {
	if c.config.PushgatewayURL == "" {
		c.logger.Debug("metrics: pushgateway URL not configured, skipping push")
		return nil
	}

	select {
	case <-ctx.Done():
		c.logger.Debug("metrics push отменён")
		return nil
	default:
	}

	pusher := push.New(c.config.PushgatewayURL, c.config.JobName).
		Gatherer(c.registry).
		Grouping("instance", c.instance)
	for _, name := range groupingNames(c.config.Grouping) {
		pusher = pusher.Grouping(name, sanitizeLabel(c.config.Grouping[name]))
	}

	pushCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := pusher.PushContext(pushCtx); err != nil {
		c.logger.Error("ошибка отправки метрик в Pushgateway",
			"error", err.Error(),
			"url", urlutil.MaskURL(c.config.PushgatewayURL),
			"job", c.config.JobName,
		)
		return nil
	}

	c.logger.Info("метрики отправлены в Pushgateway",
		"url", urlutil.MaskURL(c.config.PushgatewayURL),
		"job", c.config.JobName,
		"instance", c.instance,
	)
	return nil
}

// groupingNames возвращает имена непустых grouping labels в стабильном порядке.
func groupingNames(grouping map[string]string) []string {
	names := make([]string, 0, len(grouping))
	for name, value := range grouping {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Registry возвращает внутренний registry. Используется в тестах.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}
