// Package otel binds engine counters and histograms to OpenTelemetry
// observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter.
// Each histogram becomes a cumulative "_bucket" gauge, with one point per "le"
// attribute value, plus a "_count" gauge. A single callback reads
// [goCrud.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
