package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/obsware/reqlog/internal/logging"
)

// Probe endpoint paths.
const (
	LivenessPath  = "/health/liveness"
	ReadinessPath = "/health/readiness"
)

// DefaultProbeTimeout bounds how long a readiness probe waits for the
// registered checks.
const DefaultProbeTimeout = 5 * time.Second

// CheckFunc performs a single dependency check. A nil error means the
// dependency is available.
type CheckFunc func(ctx context.Context) error

// Status represents the aggregate result of a probe.
type Status struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    string                  `json:"uptime,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of a single check.
type CheckResult struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Checker runs registered dependency checks and serves the probe
// endpoints.
type Checker struct {
	logger    *logging.Logger
	startTime time.Time

	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewChecker creates a checker with no registered checks.
func NewChecker(logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Checker{
		logger:    logger,
		startTime: time.Now(),
		checks:    make(map[string]CheckFunc),
		timeout:   DefaultProbeTimeout,
	}
}

// SetProbeTimeout updates the readiness probe timeout.
func (c *Checker) SetProbeTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		c.timeout = timeout
	}
}

// RegisterCheck registers a named dependency check. Registering the
// same name again replaces the previous check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a dependency check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Health runs all checks and returns the aggregate status including
// uptime.
func (c *Checker) Health(ctx context.Context) *Status {
	status := c.runChecks(ctx)
	status.Uptime = time.Since(c.startTime).Round(time.Second).String()
	return status
}

// Readiness runs all checks and returns the aggregate status.
func (c *Checker) Readiness(ctx context.Context) *Status {
	return c.runChecks(ctx)
}

// runChecks runs the registered checks in parallel.
func (c *Checker) runChecks(ctx context.Context) *Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	status := &Status{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult),
	}

	if len(checks) == 0 {
		return status
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			start := time.Now()
			err := check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:    "ok",
				Duration:  duration.String(),
				Timestamp: time.Now().UTC(),
			}

			if err != nil {
				result.Status = "error"
				result.Error = err.Error()

				c.logger.Warn("health check failed",
					logging.String("check", name),
					logging.Err(err),
					logging.Duration("duration", duration),
				)
			}

			mu.Lock()
			if err != nil {
				status.Status = "error"
			}
			status.Checks[name] = result
			mu.Unlock()
		}(name, check)
	}

	wg.Wait()
	return status
}

// probeTimeout returns the configured readiness probe timeout.
func (c *Checker) probeTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// LivenessHandler returns the liveness probe handler. It reports the
// process as alive regardless of dependency state.
func (c *Checker) LivenessHandler() gin.HandlerFunc {
	return func(gc *gin.Context) {
		gc.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}

// ReadinessHandler returns the readiness probe handler. It responds 503
// when any registered check fails.
func (c *Checker) ReadinessHandler() gin.HandlerFunc {
	return func(gc *gin.Context) {
		ctx, cancel := context.WithTimeout(gc.Request.Context(), c.probeTimeout())
		defer cancel()

		status := c.Readiness(ctx)

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		gc.JSON(statusCode, status)
	}
}

// RegisterRoutes mounts the probe endpoints on a gin engine.
func (c *Checker) RegisterRoutes(engine *gin.Engine) {
	engine.GET(LivenessPath, c.LivenessHandler())
	engine.GET(ReadinessPath, c.ReadinessHandler())
}

// LivenessHTTPHandler returns the liveness probe handler for plain
// net/http servers.
func (c *Checker) LivenessHTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		}); err != nil {
			c.logger.Error("failed to write liveness response", logging.Err(err))
		}
	})
}

// ReadinessHTTPHandler returns the readiness probe handler for plain
// net/http servers.
func (c *Checker) ReadinessHTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.probeTimeout())
		defer cancel()

		status := c.Readiness(ctx)

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			c.logger.Error("failed to write readiness response", logging.Err(err))
		}
	})
}

// RegisterHTTPRoutes mounts the probe endpoints on a ServeMux.
func (c *Checker) RegisterHTTPRoutes(mux *http.ServeMux) {
	mux.Handle("GET "+LivenessPath, c.LivenessHTTPHandler())
	mux.Handle("GET "+ReadinessPath, c.ReadinessHTTPHandler())
}
