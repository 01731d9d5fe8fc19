// Package metrics defines the sinks that receive finished planning runs.
// Sinks like the Prometheus and InfluxDB ones in infra/metrics record plan
// metrics and can be combined with NewMultiSink. The factory helpers return a
// MultiSink automatically when multiple sinks are configured. Optional
// capabilities such as anomaly recording are discovered by type assertion.
package metrics
