// Package internal contains helpers that are private to goCrud: random
// record nids and anonymous session ids.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed login throttling
//   - serverconfig: layered configuration for the goCrud server binary
//
// # What this package must NOT do
//
//   - Export types that appear in the public goCrud API.
//   - Be imported by any package outside the goCrud module.
package internal
