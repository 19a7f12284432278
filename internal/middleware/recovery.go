package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/obsware/reqlog/internal/logging"
)

// Recovery returns a middleware that recovers from panics, logs them
// with the stack, and responds 500. The panic is attached to the
// framework error slot so the completion record carries it.
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNop()
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()

				logger.WithContext(c.Request.Context()).Error("panic recovered",
					logging.String("path", c.Request.URL.Path),
					logging.String("method", c.Request.Method),
					logging.Any("panic", rec),
					logging.String("stack", string(stack)),
				)

				_ = c.Error(panicError(rec, stack))
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
					return
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}

// HTTPRecovery returns the panic recovery middleware for plain net/http
// servers.
func HTTPRecovery(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					stack := debug.Stack()

					logger.WithContext(r.Context()).Error("panic recovered",
						logging.String("path", r.URL.Path),
						logging.String("method", r.Method),
						logging.Any("panic", rec),
						logging.String("stack", string(stack)),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = io.WriteString(w, `{"error":"internal server error"}`)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// panicError converts a recovered panic value into the error surfaced on
// the completion record.
func panicError(rec any, stack []byte) error {
	if err, ok := rec.(error); ok {
		return &recoveredError{err: err, stack: stack}
	}
	return &recoveredError{err: fmt.Errorf("panic: %v", rec), stack: stack}
}

// recoveredError carries the panic's stack so the error serializer can
// emit it.
type recoveredError struct {
	err   error
	stack []byte
}

func (e *recoveredError) Error() string {
	return e.err.Error()
}

func (e *recoveredError) Unwrap() error {
	return e.err
}

// Stack implements logging.StackProvider.
func (e *recoveredError) Stack() []byte {
	return e.stack
}
