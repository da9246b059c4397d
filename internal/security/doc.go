// Package security summarizes the security posture of an engine
// configuration: cookie attributes, hashing cost, throttling and the
// warnings an operator should see at startup.
//
// # What this package must NOT do
//
//   - Import goCrud. The root package flattens its config into ReportInput.
package security
