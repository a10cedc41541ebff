// Package demo is a small web application hosting sessions in a grid.
//
// Sessions middleware loads the session named by the cookie, exposes it to
// handlers through the request context and, after the handler returns,
// writes it back: Set when a handler changed it, Touch otherwise. The
// router wires the middleware together with request metrics and tracing:
//
//	GET  /         view counter
//	POST /profile  store profile fields in the session
//	GET  /profile  read the profile bean from the second configured map
//	POST /logout   destroy the session
//	GET  /metrics  Prometheus metrics
package demo
