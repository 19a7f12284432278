package health

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// HTTPCheck returns a check that performs a GET against url and treats
// any 2xx response as healthy.
func HTTPCheck(url string, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		client := &http.Client{
			Timeout: timeout,
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
		}

		return nil
	}
}

// TCPCheck returns a check that dials address.
func TCPCheck(address string, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		dialer := &net.Dialer{
			Timeout: timeout,
		}

		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer conn.Close()

		return nil
	}
}

// RedisCheck returns a check that pings a Redis client.
func RedisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return fmt.Errorf("redis client is nil")
		}

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}

		return nil
	}
}

// SQLCheck returns a check that pings a SQL database.
func SQLCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}

		return nil
	}
}

// TimeoutCheck wraps a check with a timeout.
func TimeoutCheck(check CheckFunc, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- check(ctx)
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return fmt.Errorf("health check timed out after %v", timeout)
		}
	}
}

// CachedCheck wraps a check so its result is reused for ttl. A probe
// hitting an expired entry runs the check again; concurrent probes see
// the cached result.
func CachedCheck(check CheckFunc, ttl time.Duration) CheckFunc {
	var (
		mu         sync.RWMutex
		lastCheck  time.Time
		lastResult error
	)

	return func(ctx context.Context) error {
		mu.RLock()
		if time.Since(lastCheck) < ttl {
			result := lastResult
			mu.RUnlock()
			return result
		}
		mu.RUnlock()

		mu.Lock()
		defer mu.Unlock()

		// Another probe may have refreshed while we waited for the lock.
		if time.Since(lastCheck) < ttl {
			return lastResult
		}

		lastResult = check(ctx)
		lastCheck = time.Now()
		return lastResult
	}
}
