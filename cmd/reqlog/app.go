package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/obsware/reqlog"
	"github.com/obsware/reqlog/internal/config"
	"github.com/obsware/reqlog/internal/health"
	"github.com/obsware/reqlog/internal/logging"
	"github.com/obsware/reqlog/internal/middleware"
)

// application holds the wired server components.
type application struct {
	config  *config.Config
	logger  *logging.Logger
	engine  *gin.Engine
	server  *http.Server
	checker *health.Checker
	cache   *redis.Client
}

// newApplication wires the middleware chain, health probes, and sample
// routes.
func newApplication(cfg *config.Config, logger *logging.Logger) *application {
	if cfg.Service.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logging(logger))
	engine.Use(middleware.Recovery(logger))

	app := &application{
		config: cfg,
		logger: logger,
		engine: engine,
	}

	app.checker = app.buildHealthChecker()
	app.checker.RegisterRoutes(engine)
	registerSampleRoutes(engine)

	app.server = &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           engine,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:       cfg.Server.IdleTimeout.Duration(),
	}

	return app
}

// buildHealthChecker registers the readiness dependencies from
// configuration.
func (a *application) buildHealthChecker() *health.Checker {
	checker := health.NewChecker(a.logger)
	if timeout := a.config.Health.ProbeTimeout.Duration(); timeout > 0 {
		checker.SetProbeTimeout(timeout)
	}

	if addr := a.config.Health.CacheAddr; addr != "" {
		a.cache = redis.NewClient(&redis.Options{Addr: addr})
		checker.RegisterCheck("cache", health.CachedCheck(health.RedisCheck(a.cache), 5*time.Second))
	}

	for _, dep := range a.config.Health.Dependencies {
		timeout := dep.Timeout.Duration()
		if timeout <= 0 {
			timeout = 2 * time.Second
		}

		var check health.CheckFunc
		switch dep.Type {
		case "http":
			check = health.HTTPCheck(dep.Target, timeout)
		case "tcp":
			check = health.TCPCheck(dep.Target, timeout)
		default:
			continue
		}
		checker.RegisterCheck(dep.Name, health.TimeoutCheck(check, timeout+time.Second))
	}

	return checker
}

// registerSampleRoutes mounts demonstration endpoints whose handlers
// write application records through the facade.
func registerSampleRoutes(engine *gin.Engine) {
	api := engine.Group("/api/v1")

	api.GET("/status", func(c *gin.Context) {
		reqlog.Info(c.Request.Context(), "status requested")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	})

	api.GET("/orders/:id", func(c *gin.Context) {
		orderID := c.Param("id")
		reqlog.Info(c.Request.Context(), "order lookup", reqlog.Fields{
			"orderId": orderID,
		})
		c.JSON(http.StatusOK, gin.H{"orderId": orderID, "status": "shipped"})
	})

	api.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var order struct {
			OrderID string  `json:"orderId" binding:"required"`
			Total   float64 `json:"total"`
			UserID  int     `json:"userId"`
		}
		if err := c.ShouldBindJSON(&order); err != nil {
			reqlog.Error(ctx, "order rejected", err)
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		reqlog.Info(ctx, reqlog.Fields{
			"message": "order created",
			"data":    map[string]any{"orderId": order.OrderID, "total": order.Total},
			"userId":  order.UserID,
		})
		c.JSON(http.StatusCreated, gin.H{"orderId": order.OrderID})
	})
}

// run starts the server and blocks until shutdown completes.
func (a *application) run(configPath string) {
	a.logger.Info("starting reqlog server",
		logging.String("version", version),
		logging.String("address", a.server.Addr),
		logging.String("environment", a.config.Service.Environment),
	)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", logging.Err(err))
		}
	}()

	watcher := a.startConfigWatcher(configPath)

	a.waitForShutdown(watcher)
}

// startConfigWatcher watches the configuration file so reloads can
// retune the log level without a restart. Running on built-in defaults
// means there is no file to watch.
func (a *application) startConfigWatcher(configPath string) *config.Watcher {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, func(newConfig *config.Config) {
		if newConfig.Logging.Level == "" {
			return
		}
		a.logger.SetLevel(logging.Level(newConfig.Logging.Level))
		a.logger.Info("log level updated",
			logging.String("level", newConfig.Logging.Level),
		)
	}, config.WithLogger(a.logger))
	if err != nil {
		a.logger.Warn("failed to create config watcher", logging.Err(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		a.logger.Warn("failed to start config watcher", logging.Err(err))
	}

	return watcher
}

// waitForShutdown blocks until SIGINT or SIGTERM and then stops the
// components in order, flushing buffered records last.
func (a *application) waitForShutdown(watcher *config.Watcher) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	a.logger.Info("received shutdown signal", logging.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("failed to stop server gracefully", logging.Err(err))
	}

	if watcher != nil {
		_ = watcher.Stop()
	}

	if a.cache != nil {
		_ = a.cache.Close()
	}

	a.logger.Info("server stopped")

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := reqlog.Flush(flushCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush log records: %v\n", err)
	}
}
