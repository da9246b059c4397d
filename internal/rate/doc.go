// Package rate provides the Redis-backed failed-login throttle used by the
// goCrud engine.
//
// # Window semantics
//
// Fixed-window counters: a Lua script runs INCR and starts the window with
// PEXPIRE on the first hit. Once a counter reaches MaxLoginAttempts further
// logins are refused until the window expires. Keys live under the store prefix:
//   - <prefix>:throttle:login:<identifier>
//   - <prefix>:throttle:ip:<client ip>
//
// # What this package must NOT do
//
//   - Decide whether a login succeeded; the engine reports failures.
//   - Be imported outside the goCrud module.
package rate
