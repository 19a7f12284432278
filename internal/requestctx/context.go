// Package requestctx stores request-scoped values on a context.Context.
//
// Values travel with the request's context, so concurrent requests are
// fully isolated from one another. Writes are copy-on-write: a Set never
// mutates state observed through an older context.
package requestctx

import (
	"context"
	"time"
)

// Well-known store keys.
const (
	KeyRequestName = "requestName"
	KeyRequestID   = "requestId"
)

type fieldsKey struct{}

type startTimeKey struct{}

// Set returns a context carrying the given key/value pair alongside any
// previously set pairs. The existing map is copied, never mutated.
func Set(ctx context.Context, key string, value any) context.Context {
	existing, _ := ctx.Value(fieldsKey{}).(map[string]any)
	fields := make(map[string]any, len(existing)+1)
	for k, v := range existing {
		fields[k] = v
	}
	fields[key] = value
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// Value extracts the value stored under key, reporting whether it was set.
func Value(ctx context.Context, key string) (any, bool) {
	fields, _ := ctx.Value(fieldsKey{}).(map[string]any)
	v, ok := fields[key]
	return v, ok
}

// Fields returns a snapshot of all stored pairs. Mutating the returned map
// does not affect the context.
func Fields(ctx context.Context) map[string]any {
	existing, _ := ctx.Value(fieldsKey{}).(map[string]any)
	if len(existing) == 0 {
		return nil
	}
	fields := make(map[string]any, len(existing))
	for k, v := range existing {
		fields[k] = v
	}
	return fields
}

// WithRequestName adds a request name ("<METHOD> - <route>") to the context.
func WithRequestName(ctx context.Context, name string) context.Context {
	return Set(ctx, KeyRequestName, name)
}

// RequestName extracts the request name from context.
func RequestName(ctx context.Context) string {
	if v, ok := Value(ctx, KeyRequestName); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return Set(ctx, KeyRequestID, requestID)
}

// RequestID extracts the request ID from context.
func RequestID(ctx context.Context) string {
	if v, ok := Value(ctx, KeyRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithStartTime adds a request start time to the context. The start time is
// timing state, not a log field, so it rides its own key.
func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

// StartTime extracts the request start time from context.
func StartTime(ctx context.Context) time.Time {
	if v, ok := ctx.Value(startTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// Elapsed returns the time elapsed since the start time in context, or 0
// when no start time was recorded.
func Elapsed(ctx context.Context) time.Duration {
	start := StartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}
