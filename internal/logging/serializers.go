package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Serializers shape the request, response and error namespaces on request
// completion records. Payloads are carried verbatim; nothing is redacted
// or truncated here.

// RequestField builds the request namespace: headers, query and body.
// The body key is present only when a body was captured.
func RequestField(r *http.Request, body []byte) Field {
	payload := map[string]any{
		"headers": r.Header,
		"query":   r.URL.Query(),
	}
	if len(body) > 0 {
		payload["body"] = parseBody(body)
	}
	return zap.Any(KeyRequest, payload)
}

// parseBody decodes a JSON body into its parsed form; anything else is
// carried as a raw string.
func parseBody(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

// ResponseField builds the response namespace: the status code only.
func ResponseField(statusCode int) Field {
	return zap.Any(KeyResponse, map[string]any{"statusCode": statusCode})
}

// StackProvider is implemented by errors that captured a stack trace at
// construction.
type StackProvider interface {
	Stack() []byte
}

// ErrorField builds the error namespace: dynamic type, message, and the
// stack when the error carries one.
func ErrorField(err error) Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Any(KeyError, ErrorValue(err))
}

// ErrorValue returns the error namespace payload for err.
func ErrorValue(err error) map[string]any {
	payload := map[string]any{
		"type":    fmt.Sprintf("%T", err),
		"message": err.Error(),
	}
	var sp StackProvider
	if errors.As(err, &sp) {
		payload["stack"] = string(sp.Stack())
	}
	return payload
}
