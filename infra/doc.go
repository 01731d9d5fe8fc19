// Package infra contains technical adapters: the MQTT plan publisher, the
// Prometheus and InfluxDB sinks, and the zerolog logger. These packages
// depend only on the interfaces defined in the core packages.
package infra
