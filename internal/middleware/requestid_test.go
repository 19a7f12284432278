package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/obsware/reqlog/internal/requestctx"
)

const uuidPattern = `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name              string
		existingRequestID string
		expectNewID       bool
	}{
		{
			name:              "generates new request ID",
			existingRequestID: "",
			expectNewID:       true,
		},
		{
			name:              "uses existing request ID",
			existingRequestID: "existing-request-id-123",
			expectNewID:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			router := gin.New()
			router.Use(RequestID())
			router.GET("/api/v1/test", func(c *gin.Context) {
				captured = requestctx.RequestID(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
			if tt.existingRequestID != "" {
				req.Header.Set(RequestIDHeader, tt.existingRequestID)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.expectNewID {
				assert.Regexp(t, uuidPattern, captured)
			} else {
				assert.Equal(t, tt.existingRequestID, captured)
			}
			assert.Equal(t, captured, w.Header().Get(RequestIDHeader), "ID is echoed on the response")
		})
	}
}

func TestRequestIDWithGenerator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var captured string
	router := gin.New()
	router.Use(RequestIDWithGenerator(func() string { return "fixed-id" }))
	router.GET("/api/v1/test", func(c *gin.Context) {
		captured = requestctx.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/test", nil))

	assert.Equal(t, "fixed-id", captured)
}

func TestHTTPRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		existingRequestID string
		expectNewID       bool
	}{
		{
			name:              "generates new request ID",
			existingRequestID: "",
			expectNewID:       true,
		},
		{
			name:              "uses existing request ID",
			existingRequestID: "incoming-id",
			expectNewID:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var captured string
			handler := HTTPRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = requestctx.RequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
			if tt.existingRequestID != "" {
				req.Header.Set(RequestIDHeader, tt.existingRequestID)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if tt.expectNewID {
				assert.Regexp(t, uuidPattern, captured)
			} else {
				assert.Equal(t, tt.existingRequestID, captured)
			}
			assert.Equal(t, captured, w.Header().Get(RequestIDHeader))
		})
	}
}
