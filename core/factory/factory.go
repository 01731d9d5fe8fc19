package factory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrUnknownType is returned by Build for an unregistered module type.
	ErrUnknownType = errors.New("unknown module type")
	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("module type already registered")
)

// ModuleConfig selects a module by type and carries its raw settings.
type ModuleConfig struct {
	Type string         `json:"type" yaml:"type" koanf:"type"`
	Conf map[string]any `json:"conf" yaml:"conf" koanf:"conf"`
}

// Builder turns raw settings into a T.
type Builder[T any] func(conf map[string]any) (T, error)

// Typed adapts a builder taking decoded settings of type C.
func Typed[T, C any](build func(C) (T, error)) Builder[T] {
	return func(conf map[string]any) (T, error) {
		var c C
		if err := Decode(conf, &c); err != nil {
			var zero T
			return zero, err
		}
		return build(c)
	}
}

// Catalog maps module types to builders. It is safe for concurrent use.
type Catalog[T any] struct {
	mu       sync.RWMutex
	builders map[string]Builder[T]
}

func NewCatalog[T any]() *Catalog[T] {
	return &Catalog[T]{builders: make(map[string]Builder[T])}
}

// Add registers a builder under name.
func (c *Catalog[T]) Add(name string, b Builder[T]) error {
	if name == "" || b == nil {
		return fmt.Errorf("module %q: name and builder are required", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.builders[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	c.builders[name] = b
	return nil
}

// Types lists the registered type names in ascending order.
func (c *Catalog[T]) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.builders))
	for name := range c.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the module cfg selects.
func (c *Catalog[T]) Build(cfg ModuleConfig) (T, error) {
	c.mu.RLock()
	b, ok := c.builders[cfg.Type]
	c.mu.RUnlock()
	var zero T
	if !ok {
		return zero, fmt.Errorf("%w %q", ErrUnknownType, cfg.Type)
	}
	v, err := b(cfg.Conf)
	if err != nil {
		return zero, fmt.Errorf("build %s: %w", cfg.Type, err)
	}
	return v, nil
}

// BuildAll creates every module in order and stops at the first failure.
func (c *Catalog[T]) BuildAll(cfgs []ModuleConfig) ([]T, error) {
	out := make([]T, 0, len(cfgs))
	for i, cfg := range cfgs {
		v, err := c.Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Decode fills out from raw settings using json tags. Numbers and durations
// such as "5s" may be given as strings, as environment overrides are. Keys
// out does not declare are rejected.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
