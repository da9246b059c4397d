// Package middleware exposes net/http middleware that loads cookie sessions
// and guards routes on top of goCrud.Engine.
//
// # Middleware
//
//   - [Session] loads the session from request cookies into the context.
//   - [RequireIdentity] requires a valid sealed identity cookie. No store call.
//   - [RequireSession] additionally requires the identity to name a stored user.
//
// # Architecture boundaries
//
// This package translates HTTP requests into Engine calls. Cookie sealing and
// CSRF checks stay in the session package; the guards only pass or reject.
//
// # What this package must NOT do
//
//   - Open or seal cookies directly.
//   - Access the store except through the Engine.
//   - Write cookies to the response.
package middleware
