// Package factory builds pluggable modules, such as metrics sinks, from
// configuration. A module is selected by its type name and receives the raw
// settings found under conf:
//
//	sinks := factory.NewCatalog[metrics.PlanSink]()
//	_ = sinks.Add("influx", factory.Typed(func(c influxConf) (metrics.PlanSink, error) {
//		return newInfluxSink(c.URL), nil
//	}))
//	s, err := sinks.Build(factory.ModuleConfig{Type: "influx", Conf: map[string]any{"url": "http://localhost:8086"}})
package factory
