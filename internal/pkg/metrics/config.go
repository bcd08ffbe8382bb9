package metrics

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

var groupingLabelRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config содержит настройки отправки метрик.
type Config struct {
	// Enabled — включены ли метрики (по умолчанию false).
	Enabled bool

	// PushgatewayURL — URL Prometheus Pushgateway, например "http://pushgateway:9091".
	PushgatewayURL string

	// JobName — имя job для группировки метрик. По умолчанию "unentropy".
	JobName string

	// Timeout — таймаут HTTP запросов к Pushgateway.
	Timeout time.Duration

	// InstanceLabel — переопределение instance label. Если пусто — hostname.
	InstanceLabel string

	// Grouping — дополнительные grouping labels Pushgateway, например
	// namespace gate-файла. Пустые значения пропускаются.
	Grouping map[string]string
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.PushgatewayURL == "" {
		return ErrPushgatewayURLRequired
	}
	u, err := url.Parse(c.PushgatewayURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrPushgatewayURLInvalid
	}
	if c.JobName == "" {
		return ErrJobNameRequired
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	for name := range c.Grouping {
		if name == "job" || name == "instance" || !groupingLabelRe.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrGroupingLabelInvalid, name)
		}
	}
	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		JobName: "unentropy",
		Timeout: 10 * time.Second,
	}
}
