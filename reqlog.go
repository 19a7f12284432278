// Package reqlog is a request-scoped structured logging layer for HTTP
// services.
//
// Application code logs through Info, Warn and Error, passing the
// request's context so records pick up the request name and request ID
// registered by the middleware. Inputs are polymorphic: a plain message,
// a message with metadata, or a single structured object. Records are
// emitted as JSON lines through an asynchronous sink; Flush drains it.
package reqlog

import (
	"context"
	"sort"

	"github.com/obsware/reqlog/internal/logging"
)

// Fields is free-form structured data attached to a record.
type Fields map[string]any

// Info logs an info record. See normalize for the accepted shapes.
func Info(ctx context.Context, args ...any) {
	emit(ctx, logging.LevelInfo, args)
}

// Warn logs a warn record. See normalize for the accepted shapes.
func Warn(ctx context.Context, args ...any) {
	emit(ctx, logging.LevelWarn, args)
}

// Error logs an error record. See normalize for the accepted shapes.
func Error(ctx context.Context, args ...any) {
	emit(ctx, logging.LevelError, args)
}

// Flush drains buffered records to the sink, returning the sink's error
// unmodified. It honors ctx cancellation.
func Flush(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- logging.L().Sync()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func emit(ctx context.Context, level logging.Level, args []any) {
	msg, fields := normalize(level, args)
	logger := logging.L().WithContext(ctx)
	switch level {
	case logging.LevelWarn:
		logger.Warn(msg, fields...)
	case logging.LevelError:
		logger.Error(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}

// normalize maps the accepted input shapes onto a message and fields:
//
//   - a string: the message, optionally followed by metadata (a map, an
//     error, or any other value logged under data);
//   - a map: an optional message key, a data map merged beneath the
//     remaining keys (info/warn), an error key (error level), and all
//     other keys carried through verbatim;
//   - anything else: best-effort, logged under data with no message.
//
// normalize never panics on malformed input.
func normalize(level logging.Level, args []any) (string, []logging.Field) {
	if len(args) == 0 {
		return "", nil
	}

	switch first := args[0].(type) {
	case string:
		if len(args) < 2 || args[1] == nil {
			return first, nil
		}
		return first, metaFields(args[1])
	case Fields:
		return objectFields(level, map[string]any(first))
	case map[string]any:
		return objectFields(level, first)
	default:
		if first == nil {
			return "", nil
		}
		return "", []logging.Field{logging.Any(logging.KeyData, first)}
	}
}

// metaFields normalizes the second argument of the message-first shape.
func metaFields(meta any) []logging.Field {
	switch m := meta.(type) {
	case Fields:
		return metaMapFields(map[string]any(m))
	case map[string]any:
		return metaMapFields(m)
	case error:
		return []logging.Field{logging.ErrorField(m)}
	default:
		return []logging.Field{logging.Any(logging.KeyData, m)}
	}
}

// metaMapFields emits every metadata key as a top-level field. A message
// key is skipped: the string argument already is the message.
func metaMapFields(m map[string]any) []logging.Field {
	if len(m) == 0 {
		return nil
	}
	rest := make(map[string]any, len(m))
	for k, v := range m {
		if k == logging.KeyMessage {
			continue
		}
		rest[k] = v
	}
	return sortedFields(rest)
}

// objectFields normalizes the single-object shape. The message key must
// hold a string to become the record message; otherwise it stays a plain
// field. At info/warn a plain-map data key is merged beneath the
// remaining keys (remaining keys win); data of any other type
// contributes nothing. At error level the error key feeds the error
// serializer.
func objectFields(level logging.Level, m map[string]any) (string, []logging.Field) {
	msg := ""
	rest := make(map[string]any, len(m))
	var dataMap map[string]any
	var errVal any
	var hasErr bool

	for k, v := range m {
		switch {
		case k == logging.KeyMessage:
			if s, ok := v.(string); ok {
				msg = s
				continue
			}
			rest[k] = v
		case k == logging.KeyData && level != logging.LevelError:
			switch dm := v.(type) {
			case Fields:
				dataMap = map[string]any(dm)
			case map[string]any:
				dataMap = dm
			}
		case k == logging.KeyError && level == logging.LevelError:
			errVal, hasErr = v, true
		default:
			rest[k] = v
		}
	}

	for k, v := range dataMap {
		if _, ok := rest[k]; !ok {
			rest[k] = v
		}
	}

	fields := sortedFields(rest)
	if hasErr {
		if err, ok := errVal.(error); ok && err != nil {
			fields = append(fields, logging.ErrorField(err))
		} else {
			fields = append(fields, logging.Any(logging.KeyError, errVal))
		}
	}
	return msg, fields
}

// sortedFields emits map entries in key order so records are
// deterministic.
func sortedFields(m map[string]any) []logging.Field {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]logging.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, logging.Any(k, m[k]))
	}
	return fields
}
