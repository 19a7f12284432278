package logging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/obsware/reqlog/internal/requestctx"
)

// Record keys. These are the output contract keys, so they stay camelCase.
const (
	KeyTime           = "time"
	KeyLevel          = "level"
	KeyMessage        = "message"
	KeyRequestName    = "requestName"
	KeyRequestID      = "requestId"
	KeyProjectName    = "projectName"
	KeyProjectVersion = "projectVersion"
	KeyType           = "type"
	KeyRoute          = "route"
	KeyRequest        = "request"
	KeyResponse       = "response"
	KeyError          = "error"
	KeyData           = "data"
)

// TypeHTTPRequest is the type field value stamped on request completion
// records.
const TypeHTTPRequest = "http_request"

// RouteUnresolved is the route field value for requests no route matched.
const RouteUnresolved = "N/A"

// Field is a structured log field.
type Field = zap.Field

// String creates a string field.
func String(key, value string) Field {
	return zap.String(key, value)
}

// Int creates an int field.
func Int(key string, value int) Field {
	return zap.Int(key, value)
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return zap.Int64(key, value)
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return zap.Float64(key, value)
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Time creates a time field.
func Time(key string, value time.Time) Field {
	return zap.Time(key, value)
}

// Any creates a field with an arbitrary value.
func Any(key string, value any) Field {
	return zap.Any(key, value)
}

// Err creates an error field under the standard error key.
func Err(err error) Field {
	return ErrorField(err)
}

// ContextFields extracts the request-scoped fields from ctx. Only the
// well-known request keys are returned; nothing else in the context leaks
// into records.
func ContextFields(ctx context.Context) []Field {
	var fields []Field
	if name := requestctx.RequestName(ctx); name != "" {
		fields = append(fields, zap.String(KeyRequestName, name))
	}
	if id := requestctx.RequestID(ctx); id != "" {
		fields = append(fields, zap.String(KeyRequestID, id))
	}
	return fields
}
