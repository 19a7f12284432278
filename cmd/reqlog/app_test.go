// Package main provides unit tests for the reqlog server entry point.
package main

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsware/reqlog/internal/config"
	"github.com/obsware/reqlog/internal/logging"
)

// recordingSink captures encoded records for assertions.
type recordingSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *recordingSink) Sync() error {
	return nil
}

func (s *recordingSink) records(t *testing.T) []map[string]any {
	t.Helper()
	s.mu.Lock()
	raw := strings.TrimSpace(s.buf.String())
	s.mu.Unlock()
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	records := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record), "line: %s", line)
		records = append(records, record)
	}
	return records
}

// newTestApplication wires an application whose middleware and facade
// records both land in the returned sink.
func newTestApplication(t *testing.T, cfg *config.Config) (*application, *recordingSink) {
	t.Helper()

	sink := &recordingSink{}
	logger := logging.NewWithSink(&logging.Config{
		Level:            logging.LevelDebug,
		ServiceName:      cfg.Service.Name,
		ServiceVersion:   version,
		DisableBuffering: true,
	}, sink)

	previous := logging.GetGlobalLogger()
	logging.SetGlobalLogger(logger)
	t.Cleanup(func() { logging.SetGlobalLogger(previous) })

	return newApplication(cfg, logger), sink
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		setEnv       bool
		expected     string
	}{
		{
			name:         "returns default when env not set",
			key:          "REQLOG_TEST_GETENV_NOTSET",
			defaultValue: "default-value",
			expected:     "default-value",
		},
		{
			name:         "returns env value when set",
			key:          "REQLOG_TEST_GETENV_SET",
			defaultValue: "default-value",
			envValue:     "env-value",
			setEnv:       true,
			expected:     "env-value",
		},
		{
			name:         "returns default when env is empty string",
			key:          "REQLOG_TEST_GETENV_EMPTY",
			defaultValue: "default-value",
			envValue:     "",
			setEnv:       true,
			expected:     "default-value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}

			assert.Equal(t, tt.expected, getEnvOrDefault(tt.key, tt.defaultValue))
		})
	}
}

func TestLoadConfig_MissingDefaultUsesBuiltins(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(cliFlags{configPath: defaultConfigPath})

	assert.Equal(t, "reqlog", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reqlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: checkout\n"), 0o644))

	cfg := loadConfig(cliFlags{configPath: path})

	assert.Equal(t, "checkout", cfg.Service.Name)
}

func TestApplication_HealthRoutesSuppressed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, sink := newTestApplication(t, config.DefaultConfig())

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/liveness", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sink.records(t), "probe traffic is not logged")
}

func TestApplication_StatusRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, sink := newTestApplication(t, config.DefaultConfig())

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, w.Code)

	records := sink.records(t)
	require.Len(t, records, 2, "facade record plus completion record")

	assert.Equal(t, "status requested", records[0]["message"])
	assert.Equal(t, "GET - /api/v1/status", records[0]["requestName"])
	assert.NotEmpty(t, records[0]["requestId"])

	assert.Equal(t, "http_request", records[1]["type"])
	assert.Equal(t, "/api/v1/status", records[1]["route"])
	assert.Equal(t, "info", records[1]["level"])
}

func TestApplication_CreateOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, sink := newTestApplication(t, config.DefaultConfig())

	payload := `{"orderId":"ORD-123","total":150,"userId":456}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	records := sink.records(t)
	require.Len(t, records, 2)

	created := records[0]
	assert.Equal(t, "order created", created["message"])
	assert.Equal(t, "ORD-123", created["orderId"])
	assert.Equal(t, float64(150), created["total"])
	assert.Equal(t, float64(456), created["userId"])

	completion := records[1]
	assert.Equal(t, "info", completion["level"])
	request, ok := completion["request"].(map[string]any)
	require.True(t, ok)
	body, ok := request["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ORD-123", body["orderId"])
}

func TestApplication_RejectedOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, sink := newTestApplication(t, config.DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"total":10}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	records := sink.records(t)
	require.Len(t, records, 2)

	rejected := records[0]
	assert.Equal(t, "error", rejected["level"])
	assert.Equal(t, "order rejected", rejected["message"])
	_, hasError := rejected["error"]
	assert.True(t, hasError)

	completion := records[1]
	assert.Equal(t, "error", completion["level"])
	_, hasError = completion["error"]
	assert.True(t, hasError)
}

func TestBuildHealthChecker_Readiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := config.DefaultConfig()
	cfg.Health.CacheAddr = mr.Addr()
	cfg.Health.ProbeTimeout = config.Duration(2 * time.Second)
	cfg.Health.Dependencies = []config.DependencyConfig{
		{Name: "billing", Type: "http", Target: upstream.URL},
		{Name: "queue", Type: "tcp", Target: listener.Addr().String()},
	}

	app, _ := newTestApplication(t, cfg)

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	checks, ok := status["checks"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, checks, 3)
}

func TestBuildHealthChecker_FailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := config.DefaultConfig()
	cfg.Health.Dependencies = []config.DependencyConfig{
		{Name: "queue", Type: "tcp", Target: address, Timeout: config.Duration(200 * time.Millisecond)},
	}

	app, _ := newTestApplication(t, cfg)

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
