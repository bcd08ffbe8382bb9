package metrics

import (
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
)

// NewCollector создаёт Collector по конфигурации.
func NewCollector(config Config, logger logging.Logger) (Collector, error) {
	if !config.Enabled {
		return NewNopCollector(), nil
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewPrometheusCollector(config, logger)
}
