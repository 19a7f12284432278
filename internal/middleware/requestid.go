package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/obsware/reqlog/internal/requestctx"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
)

// RequestID returns a middleware that assigns each request an ID. An
// incoming X-Request-ID header is honored; otherwise a UUID is
// generated. The ID is registered in the request context and echoed on
// the response.
func RequestID() gin.HandlerFunc {
	return RequestIDWithGenerator(func() string {
		return uuid.New().String()
	})
}

// RequestIDWithGenerator returns a request ID middleware using a custom
// ID generator.
func RequestIDWithGenerator(generator func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = generator()
		}

		ctx := requestctx.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// HTTPRequestID returns the request ID middleware for plain net/http
// servers.
func HTTPRequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := requestctx.WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
