// Package internaldefs holds the metric names and bucket boundaries shared by
// the exporters.
//
// Both the Prometheus and OTel exporters read these definitions, so they always
// expose identical names and buckets.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
