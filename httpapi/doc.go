// Package httpapi exposes a [goCrud.Engine] over HTTP with echo.
//
// Request bodies and responses are JSON. The session travels in two sealed
// cookies: the identity cookie set by login and the CSRF cookie set by
// GET /token. State-changing user, group and grant routes take the CSRF token
// in the auth_token body field. POST /group/member is the exception: it needs
// no session and takes no token.
//
// Routes:
//
//	POST   /user          create user
//	POST   /user/login    log in
//	POST   /user/logout   log out
//	PATCH  /user          update the logged-in user
//	DELETE /user          delete the logged-in user
//	GET    /user          get user by ?nid= or ?email=
//	GET    /users         list users
//	GET    /token         issue a CSRF token
//	POST   /group         create group
//	POST   /group/member  add a group member
//	GET    /group         get group by ?nid=
//	GET    /groups        list groups
//	DELETE /group         delete an owned group
//	POST   /grant         create grant
//	GET    /grant         get grant by ?nid=
//	GET    /grants        list grants
//	PUT    /grant         replace grant (compare-and-swap)
//	DELETE /grant         delete grant (compare-and-swap)
//	GET    /healthz       store reachability
//	GET    /metrics       Prometheus exposition, when metrics are enabled
//
// Grant routes additionally require a logged-in user that still exists.
package httpapi
