// Package infra contains technical adapters such as the SQLite store,
// metrics exporters, the MQTT telemetry ingestor and the model runtime.
// These packages should depend only on the interfaces defined in the
// core packages.
package infra
