package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/obsware/reqlog/internal/logging"
	"github.com/obsware/reqlog/internal/requestctx"
)

// maxLoggedBodyBytes caps the request body portion carried on the
// completion record. The full body is always restored for handlers.
const maxLoggedBodyBytes = 64 << 10

// fallbackErrorMessage stands in when a failing status has no text.
const fallbackErrorMessage = "Request failed"

// LoggingConfig holds configuration for the request logging middleware.
type LoggingConfig struct {
	Logger *logging.Logger

	// SkipPaths are matched exactly against the request path; matching
	// requests are forwarded untouched, with no record and no context
	// registration. Nil keeps the default health endpoints.
	SkipPaths []string
}

// defaultSkipPaths returns the suppressed health endpoints.
func defaultSkipPaths() []string {
	return []string{"/health/liveness", "/health/readiness"}
}

// Logging returns a middleware that emits one completion record per
// request.
func Logging(logger *logging.Logger) gin.HandlerFunc {
	return LoggingWithConfig(LoggingConfig{Logger: logger})
}

// LoggingWithConfig returns the request logging middleware with a custom
// suppression list.
func LoggingWithConfig(config LoggingConfig) gin.HandlerFunc {
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

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		body := captureBody(c.Request)

		ctx := requestctx.WithStartTime(c.Request.Context(), time.Now())
		if route := c.FullPath(); route != "" {
			ctx = requestctx.WithRequestName(ctx, requestName(c.Request.Method, route))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := buildLogFields(c, body, status)
		msg := summaryMessage(ctx, c.Request, status, c.Writer.Header())
		logRequestByStatus(config.Logger.WithContext(ctx), status, msg, fields)
	}
}

// requestName formats the request-scoped name registered for resolved
// routes.
func requestName(method, route string) string {
	return method + " - " + route
}

// captureBody reads the request body and restores it for downstream
// handlers. Only the first maxLoggedBodyBytes are returned for logging.
func captureBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) > maxLoggedBodyBytes {
		return body[:maxLoggedBodyBytes]
	}
	return body
}

// buildLogFields builds the completion record fields.
func buildLogFields(c *gin.Context, body []byte, status int) []logging.Field {
	route := c.FullPath()
	if route == "" {
		route = logging.RouteUnresolved
	}

	fields := []logging.Field{
		logging.String(logging.KeyType, logging.TypeHTTPRequest),
		logging.String(logging.KeyRoute, route),
		logging.RequestField(c.Request, body),
		logging.ResponseField(status),
	}

	if status >= http.StatusBadRequest {
		fields = append(fields, logging.ErrorField(completionError(c, status)))
	}
	return fields
}

// completionError returns the application-set error when one was attached
// to the context; otherwise an error synthesized from the status text.
func completionError(c *gin.Context, status int) error {
	if last := c.Errors.Last(); last != nil {
		return last.Err
	}
	return newStatusError(status)
}

// summaryMessage composes "<METHOD> <url> <status> <elapsedMs>ms - <size>".
func summaryMessage(ctx context.Context, r *http.Request, status int, header http.Header) string {
	elapsed := requestctx.Elapsed(ctx).Milliseconds()
	return fmt.Sprintf("%s %s %d %dms - %s",
		r.Method, r.URL.RequestURI(), status, elapsed, responseSize(header))
}

// responseSize returns the Content-Length header value verbatim, "0b"
// when the header is absent.
func responseSize(header http.Header) string {
	if v := header.Get("Content-Length"); v != "" {
		return v
	}
	return "0b"
}

// logRequestByStatus emits the completion record: error for status >= 400,
// info otherwise.
func logRequestByStatus(logger *logging.Logger, status int, msg string, fields []logging.Field) {
	if status >= http.StatusBadRequest {
		logger.Error(msg, fields...)
		return
	}
	logger.Info(msg, fields...)
}

// statusError stands in when a failing request had no application error.
// The stack is captured at construction.
type statusError struct {
	text  string
	stack []byte
}

func newStatusError(status int) *statusError {
	text := http.StatusText(status)
	if text == "" {
		text = fallbackErrorMessage
	}
	return &statusError{text: text, stack: debug.Stack()}
}

func (e *statusError) Error() string {
	return e.text
}

// Stack implements logging.StackProvider.
func (e *statusError) Stack() []byte {
	return e.stack
}
