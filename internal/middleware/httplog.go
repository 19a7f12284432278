package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/obsware/reqlog/internal/logging"
	"github.com/obsware/reqlog/internal/requestctx"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WriteHeader captures the status code. Only the first write counts.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write marks the implicit 200 before the first body write.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher for streaming support.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPLogging returns the request completion record middleware for plain
// net/http servers.
func HTTPLogging(logger *logging.Logger) func(http.Handler) http.Handler {
	return HTTPLoggingWithConfig(LoggingConfig{Logger: logger})
}

// HTTPLoggingWithConfig returns the net/http request logging middleware
// with a custom suppression list.
//
// The route comes from the ServeMux pattern. Wrap per-route handlers to
// have the request name registered before the handler runs; wrapping a
// whole mux still resolves the route on the completion record.
func HTTPLoggingWithConfig(config LoggingConfig) func(http.Handler) http.Handler {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}

	paths := config.SkipPaths
	if paths == nil {
		paths = defaultSkipPaths()
	}
	skipPaths := make(map[string]bool, len(paths))
	for _, path := range paths {
		skipPaths[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			body := captureBody(r)

			ctx := requestctx.WithStartTime(r.Context(), time.Now())
			route := routePattern(r)
			if route != "" {
				ctx = requestctx.WithRequestName(ctx, requestName(r.Method, route))
			}
			r = r.WithContext(ctx)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if route == "" {
				route = routePattern(r)
			}
			logHTTPRequest(config.Logger, r, rw.status, route, body, rw.Header())
		})
	}
}

// logHTTPRequest emits the completion record for the net/http variant.
// There is no framework error slot here, so failing statuses always get
// a synthesized error.
func logHTTPRequest(logger *logging.Logger, r *http.Request, status int, route string, body []byte, header http.Header) {
	if route == "" {
		route = logging.RouteUnresolved
	}

	fields := []logging.Field{
		logging.String(logging.KeyType, logging.TypeHTTPRequest),
		logging.String(logging.KeyRoute, route),
		logging.RequestField(r, body),
		logging.ResponseField(status),
	}
	if status >= http.StatusBadRequest {
		fields = append(fields, logging.ErrorField(newStatusError(status)))
	}

	msg := summaryMessage(r.Context(), r, status, header)
	logRequestByStatus(logger.WithContext(r.Context()), status, msg, fields)
}

// routePattern returns the matched ServeMux pattern without its method
// prefix.
func routePattern(r *http.Request) string {
	pattern := r.Pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}
