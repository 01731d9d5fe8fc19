package metrics

import (
	"fmt"

	"github.com/kilianp07/washcrew/core/factory"
)

// DefaultPrometheusAddr is where the serve command exposes /metrics.
const DefaultPrometheusAddr = ":2112"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks" yaml:"sinks" koanf:"sinks"`
	PrometheusAddr string                 `json:"prometheus_addr" yaml:"prometheus_addr" koanf:"prometheus_addr"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = DefaultPrometheusAddr
	}
}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}
