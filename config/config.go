// Package config loads the washcrew configuration file and its environment
// overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/washcrew/core/metrics"
	"github.com/kilianp07/washcrew/core/runlog"
	"github.com/kilianp07/washcrew/core/scheduler"
	"github.com/kilianp07/washcrew/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. WC_MQTT__BROKER.
const EnvPrefix = "WC_"

type Config struct {
	Planning PlanningConfig `json:"planning"`
	Metrics  metrics.Config `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
	RunLog   runlog.Config  `json:"runlog"`
	MQTT     mqtt.Config    `json:"mqtt"`
}

// Load reads path, applies WC_ environment overrides and validates every
// section. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if f := cfg.Planning.SchedulerFile; f != "" {
		if !filepath.IsAbs(f) && path != "" {
			f = filepath.Join(filepath.Dir(path), f)
		}
		sc, err := scheduler.LoadConfig(f)
		if err != nil {
			return nil, fmt.Errorf("planning: %w", err)
		}
		cfg.Planning.Scheduler = sc
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Planning.SetDefaults()
	c.Metrics.SetDefaults()
	c.Logging.SetDefaults()
	c.RunLog.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"planning", c.Planning},
		{"metrics", c.Metrics},
		{"logging", c.Logging},
		{"runlog", c.RunLog},
		{"mqtt", c.MQTT},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
