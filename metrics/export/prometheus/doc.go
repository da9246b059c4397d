// Package prometheus renders engine metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] wraps a [goCrud.Engine] and exposes an [http.Handler]
// suitable for mounting on a /metrics route. Counter names follow gocrud_*_total;
// the latency histogram is gocrud_operation_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry.
//   - Mutate engine state.
package prometheus
