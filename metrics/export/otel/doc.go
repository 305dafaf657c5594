// Package otel publishes goQuiz engine metrics as OpenTelemetry observable
// instruments.
//
// Each engine counter becomes an Int64ObservableCounter. Each latency
// histogram becomes one Int64ObservableGauge per cumulative bucket plus a
// count gauge. One callback reads the engine snapshot per collection cycle.
// Callers own the MeterProvider.
package otel
