package config

import (
	"fmt"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/metrics"
	"github.com/unentropy/unentropy-sub001/internal/pkg/tracing"
)

// LoggingConfig содержит настройки логирования. Переменные QG_LOG_*
// переопределяют секцию logging файла конфигурации.
type LoggingConfig struct {
	Level      string `env:"QG_LOG_LEVEL"`
	Format     string `env:"QG_LOG_FORMAT"`
	Output     string `env:"QG_LOG_OUTPUT"`
	FilePath   string `env:"QG_LOG_FILE_PATH"`
	MaxSize    int    `env:"QG_LOG_MAX_SIZE"`
	MaxBackups int    `env:"QG_LOG_MAX_BACKUPS"`
	MaxAge     int    `env:"QG_LOG_MAX_AGE"`
	Compress   bool   `env:"QG_LOG_COMPRESS"`
}

// DefaultLoggingConfig совпадает с logging.DefaultConfig.
func DefaultLoggingConfig() LoggingConfig {
	d := logging.DefaultConfig()
	return LoggingConfig{
		Level:      d.Level,
		Format:     d.Format,
		Output:     d.Output,
		FilePath:   d.FilePath,
		MaxSize:    d.MaxSize,
		MaxBackups: d.MaxBackups,
		MaxAge:     d.MaxAge,
		Compress:   d.Compress,
	}
}

func (l *LoggingConfig) merge(f FileLogging) {
	setString(&l.Level, f.Level)
	setString(&l.Format, f.Format)
	setString(&l.Output, f.Output)
	setString(&l.FilePath, f.FilePath)
	if f.MaxSize > 0 {
		l.MaxSize = f.MaxSize
	}
	setPtr(&l.MaxBackups, f.MaxBackups)
	setPtr(&l.MaxAge, f.MaxAge)
	setPtr(&l.Compress, f.Compress)
}

func (l *LoggingConfig) validate() error {
	switch l.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("неизвестный уровень логирования %q", l.Level)
	}
	switch l.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("неизвестный формат логов %q", l.Format)
	}
	switch l.Output {
	case logging.OutputStderr:
	case logging.OutputFile:
		if l.FilePath == "" {
			return fmt.Errorf("для output=file не задан filePath")
		}
	default:
		return fmt.Errorf("неизвестный вывод логов %q", l.Output)
	}
	return nil
}

// ToLoggingConfig преобразует настройки в logging.Config.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:      l.Level,
		Format:     l.Format,
		Output:     l.Output,
		FilePath:   l.FilePath,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
}

// MetricsConfig содержит настройки отправки метрик в Prometheus Pushgateway.
type MetricsConfig struct {
	Enabled        bool          `env:"QG_METRICS_ENABLED"`
	PushgatewayURL string        `env:"QG_METRICS_PUSHGATEWAY_URL"`
	JobName        string        `env:"QG_METRICS_JOB_NAME"`
	Timeout        time.Duration `env:"QG_METRICS_TIMEOUT"`
	InstanceLabel  string        `env:"QG_METRICS_INSTANCE"`
}

// DefaultMetricsConfig возвращает настройки по умолчанию: метрики выключены.
func DefaultMetricsConfig() MetricsConfig {
	d := metrics.DefaultConfig()
	return MetricsConfig{JobName: d.JobName, Timeout: d.Timeout}
}

func (m *MetricsConfig) merge(f FilePrometheus) {
	setPtr(&m.Enabled, f.Enabled)
	setString(&m.PushgatewayURL, f.PushgatewayURL)
	setString(&m.JobName, f.JobName)
	setString(&m.InstanceLabel, f.InstanceLabel)
	if f.Timeout > 0 {
		m.Timeout = f.Timeout
	}
}

// ToMetricsConfig преобразует настройки в metrics.Config.
func (m MetricsConfig) ToMetricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:        m.Enabled,
		PushgatewayURL: m.PushgatewayURL,
		JobName:        m.JobName,
		Timeout:        m.Timeout,
		InstanceLabel:  m.InstanceLabel,
	}
}

// PushConfig возвращает настройки отправки метрик с namespace gate-файла
// в качестве grouping label.
func (c *Config) PushConfig() metrics.Config {
	mc := c.Metrics.ToMetricsConfig()
	if c.File != nil && c.File.Namespace != "" {
		mc.Grouping = map[string]string{"namespace": c.File.Namespace}
	}
	return mc
}

// TracingConfig содержит настройки OpenTelemetry трейсинга.
type TracingConfig struct {
	Enabled     bool          `env:"QG_TRACING_ENABLED"`
	Endpoint    string        `env:"QG_TRACING_ENDPOINT"`
	ServiceName string        `env:"QG_TRACING_SERVICE_NAME"`
	Environment string        `env:"QG_TRACING_ENVIRONMENT"`
	Insecure    bool          `env:"QG_TRACING_INSECURE"`
	Timeout     time.Duration `env:"QG_TRACING_TIMEOUT"`
	// SamplingRate — доля сэмплируемых трейсов от 0.0 до 1.0.
	SamplingRate float64 `env:"QG_TRACING_SAMPLING_RATE"`
}

// DefaultTracingConfig возвращает настройки по умолчанию: трейсинг выключен.
func DefaultTracingConfig() TracingConfig {
	d := tracing.DefaultConfig()
	return TracingConfig{
		ServiceName:  d.ServiceName,
		Environment:  d.Environment,
		Insecure:     true,
		Timeout:      d.Timeout,
		SamplingRate: d.SamplingRate,
	}
}

func (t *TracingConfig) merge(f FileTracing) {
	setPtr(&t.Enabled, f.Enabled)
	setString(&t.Endpoint, f.Endpoint)
	setString(&t.ServiceName, f.ServiceName)
	setString(&t.Environment, f.Environment)
	setPtr(&t.Insecure, f.Insecure)
	setPtr(&t.SamplingRate, f.SamplingRate)
	if f.Timeout > 0 {
		t.Timeout = f.Timeout
	}
}

// ToTracingConfig преобразует настройки в tracing.Config.
func (t TracingConfig) ToTracingConfig(version string) tracing.Config {
	return tracing.Config{
		Enabled:      t.Enabled,
		Endpoint:     t.Endpoint,
		ServiceName:  t.ServiceName,
		Version:      version,
		Environment:  t.Environment,
		Insecure:     t.Insecure,
		Timeout:      t.Timeout,
		SamplingRate: t.SamplingRate,
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
