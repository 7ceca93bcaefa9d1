// Package server runs the short-lived loopback HTTP server that receives the OAuth2 redirect.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux] with a method check and a [Middleware] stack applied in
// reverse order (last added executes first). [Logging] and [Recover] are the stock middleware.
//
// # Callback
//
// [CallbackHandler] accepts exactly one redirect. It hands the full redirect URL to a validation
// function, renders a small result page and delivers a [CallbackResult] on its channel. Later
// requests are rejected so a replayed redirect cannot change the outcome.
//
// [Server] binds the listener up front so the caller knows the port is ready before opening the
// browser, then serves until [Server.Shutdown].
package server
