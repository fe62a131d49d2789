// Package influxdb provides the time-series history sink for routed
// telemetry.
//
// The in-memory caches hold only the latest reading per device; this client
// writes every routed numeric measurement to InfluxDB so the dashboard can
// chart history. Writes are non-blocking and batched, with async write
// errors surfaced through an error callback. The sink is optional and
// controlled by config.
package influxdb
