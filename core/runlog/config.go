package runlog

import (
	"fmt"
)

// Backends.
const (
	BackendNone     = "none"
	BackendJSONL    = "jsonl"
	BackendRotating = "rotating"
	BackendSQLite   = "sqlite"
)

// Config defines settings for run log storage and rotation.
type Config struct {
	// Backend selects the store: "none", "jsonl", "rotating" or "sqlite".
	Backend string `json:"backend" yaml:"backend" koanf:"backend"`
	// Path is the file location of the store.
	Path string `json:"path" yaml:"path" koanf:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb" koanf:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups" yaml:"max_backups" koanf:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" koanf:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" {
		c.Path = "runs.jsonl"
	}
	if c.Backend == BackendRotating && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone:
		return nil
	case BackendJSONL, BackendRotating, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotation limits must not be negative")
	}
	return nil
}

// Open returns the store selected by cfg.
func Open(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendJSONL:
		s, err = NewJSONLStore(cfg.Path)
	case BackendRotating:
		s, err = NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case BackendSQLite:
		s, err = NewSQLiteStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runlog %s: %w", cfg.Backend, err)
	}
	return s, nil
}
