// Package goCrud stores users, groups and authorization grants in a
// namespaced key-value store and gates mutating operations behind a
// cookie-bound session identity and a CSRF token.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goCrud is the public surface. It exposes [Engine], [Builder], [Config], the record
// types and their public views. Persistence lives in the store package, cookies and
// CSRF tokens in session, credential hashing in password. Throttling and audit dispatch
// live under internal/.
//
// Every write is a single atomic store call. Creates insert only if the key is absent,
// updates and deletes compare-and-swap against the record the caller read, and email
// uniqueness is a reservation in its own tree. There are no multi-key transactions and
// no internal retries; a lost race surfaces as [ErrExists] or [ErrConflict].
//
// # What this package must NOT do
//
//   - Write HTTP responses. Cookie changes are returned as session.Mutation values and
//     rendered by the transport (see the httpapi package).
//   - Keep session state server-side. The session identity lives in a sealed cookie.
//   - Import any sub-package that re-imports goCrud (no import cycles).
package goCrud
