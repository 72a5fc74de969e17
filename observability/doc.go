// Package observability wires OpenTelemetry tracing and metrics for gears.
//
// InitTracer and InitMeter install OTLP/HTTP exporters on the global
// providers. Metrics holds the instruments the engine and the bridge record
// into: step invocations, step latency, step failures, active registrations
// and emitted records. Without initialization the global no-op providers are
// used and recording is free.
package observability
