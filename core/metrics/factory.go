package metrics

import "github.com/kilianp07/washcrew/core/factory"

var sinks = factory.NewCatalog[PlanSink]()

// RegisterSink makes a sink type available to configuration.
func RegisterSink(name string, b factory.Builder[PlanSink]) error {
	return sinks.Add(name, b)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinks.Types() }

// NewSink builds the configured sinks. No sink yields a NopSink, and more
// than one are fanned out through a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (PlanSink, error) {
	built, err := sinks.BuildAll(cfgs)
	if err != nil {
		return nil, err
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	}
	return NewMultiSink(built...), nil
}
