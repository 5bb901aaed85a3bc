// Package telemetry provides OpenTelemetry initialization and helpers
// for the recipe agent.
//
// Traces, logs and metrics are exported over OTLP/HTTP to the endpoint in
// OTEL_EXPORTER_OTLP_ENDPOINT. Grafana Cloud style "/otlp" base paths are
// supported.
package telemetry
