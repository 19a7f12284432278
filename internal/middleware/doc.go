// Package middleware provides the HTTP middleware behind reqlog.
//
// This package implements the request observability chain: one
// completion record per request, request ID assignment, and panic
// recovery, in gin and plain net/http variants.
//
// # Middleware Components
//
//   - Logging: the request completion record with route, request,
//     response and error fields
//   - Request ID: unique request identifier injection
//   - Recovery: panic recovery with stack trace logging
//
// # Usage
//
// Registration order matters: RequestID first, then Logging, then
// Recovery innermost, so recovered panics still surface in the
// completion record:
//
//	engine.Use(middleware.RequestID())
//	engine.Use(middleware.Logging(logger))
//	engine.Use(middleware.Recovery(logger))
package middleware
