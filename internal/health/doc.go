// Package health provides liveness and readiness probe endpoints.
//
// The liveness probe reports whether the process is running and always
// returns 200. The readiness probe runs the registered dependency
// checks and returns 503 when any of them fails.
//
// # Usage
//
// Create a checker, register dependency checks, and mount the routes:
//
//	checker := health.NewChecker(logger)
//	checker.RegisterCheck("database", health.SQLCheck(db))
//	checker.RegisterCheck("cache", health.RedisCheck(redisClient))
//	checker.RegisterCheck("billing", health.TimeoutCheck(
//	    health.HTTPCheck("http://billing.internal/ping", 2*time.Second),
//	    3*time.Second,
//	))
//
//	checker.RegisterRoutes(engine)
//
// The routes are mounted at /health/liveness and /health/readiness,
// matching the request logging middleware's default suppression list.
package health
