// Package session implements cookie-bound session identity and CSRF token
// binding for goCrud.
//
// # Session value object
//
// Session state is held entirely by the client. A request is described by a
// [Session] value: the anonymous session id carried by the CSRF cookie and,
// once logged in, the identity (a record nid) carried by the session
// identity cookie. Handlers thread that value explicitly through every
// engine call; nothing is kept in process-wide state.
//
// # Cookies
//
// Operations never write cookies themselves. They return a [Mutation]
// (set or remove) that the transport applies. On the wire every cookie
// value is sealed as an HS256 JWT by the [Sealer], so a client can read but
// not forge the nid it carries.
//
// # CSRF
//
// A CSRF token is a random nonce plus an HMAC over the nonce and the
// session it was issued to. A token minted for one session never verifies
// for another, including the same client before and after login.
//
// # What this package must NOT do
//
//   - Store sessions server-side.
//   - Import the goCrud engine or the store package.
//   - Log cookie values, tokens or passwords.
package session
