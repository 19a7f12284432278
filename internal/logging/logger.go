// Package logging provides the structured logger behind reqlog.
//
// Records are single JSON lines. Every record carries level, time,
// projectName and projectVersion; the message and any request-scoped
// fields appear only when supplied. Writes are buffered and asynchronous
// by default, flushed by Sync.
package logging

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a log level.
type Level string

const (
	// LevelDebug is the debug log level.
	LevelDebug Level = "debug"
	// LevelInfo is the info log level.
	LevelInfo Level = "info"
	// LevelWarn is the warn log level.
	LevelWarn Level = "warn"
	// LevelError is the error log level.
	LevelError Level = "error"
)

// Format represents a log format.
type Format string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = "json"
	// FormatConsole outputs logs in human-readable format.
	FormatConsole Format = "console"
)

// timeLayout is the record timestamp layout, millisecond precision.
const timeLayout = "2006-01-02 15:04:05.000"

const (
	defaultBufferSize    = 256 * 1024
	defaultFlushInterval = time.Second
)

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum log level. When empty it is derived from
	// Environment: info in production, debug everywhere else.
	Level Level

	// Format is the log output format.
	Format Format

	// Output is the output destination (stdout, stderr, or file path).
	Output string

	// Environment selects the default level when Level is empty.
	Environment string

	// ServiceName is stamped on every record as projectName.
	ServiceName string

	// ServiceVersion is stamped on every record as projectVersion.
	ServiceVersion string

	// DisableBuffering turns off the asynchronous buffered sink.
	DisableBuffering bool

	// BufferSize is the buffered sink size in bytes.
	BufferSize int

	// FlushInterval is how often the buffered sink flushes on its own.
	FlushInterval time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Format:         FormatJSON,
		Output:         "stdout",
		Environment:    "development",
		ServiceName:    "reqlog",
		ServiceVersion: "dev",
	}
}

// Logger emits structured records through zap.
type Logger struct {
	zap    *zap.Logger
	config *Config
	level  zap.AtomicLevel
	sink   zapcore.WriteSyncer
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// New creates a Logger with the given configuration.
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	sink, err := buildOutput(config.Output)
	if err != nil {
		return nil, err
	}

	return NewWithSink(config, sink), nil
}

// NewWithSink creates a Logger writing to the given sink. The sink is
// wrapped in a buffered syncer unless buffering is disabled.
func NewWithSink(config *Config, sink zapcore.WriteSyncer) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	level := zap.NewAtomicLevel()
	level.SetLevel(parseLevel(resolveLevel(config)))

	sink = buildSink(config, sink)
	encoder := buildEncoder(config.Format, buildEncoderConfig())
	core := zapcore.NewCore(encoder, sink, level)

	zapLogger := zap.New(core, zap.Fields(
		zap.String(KeyProjectName, config.ServiceName),
		zap.String(KeyProjectVersion, config.ServiceVersion),
	))

	return &Logger{
		zap:    zapLogger,
		config: config,
		level:  level,
		sink:   sink,
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		zap:    zap.NewNop(),
		config: DefaultConfig(),
		level:  zap.NewAtomicLevel(),
		sink:   zapcore.AddSync(io.Discard),
	}
}

// buildEncoderConfig creates the record encoder configuration.
//
// MessageKey is omitted: the message is not positional in the record, it
// is an optional field appended by the Logger methods, so records without
// a message simply have no message key.
func buildEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        KeyTime,
		LevelKey:       KeyLevel,
		NameKey:        zapcore.OmitKey,
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     zapcore.OmitKey,
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

// buildEncoder creates the appropriate encoder based on format.
func buildEncoder(format Format, encoderConfig zapcore.EncoderConfig) zapcore.Encoder {
	switch format {
	case FormatConsole:
		return zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return zapcore.NewJSONEncoder(encoderConfig)
	}
}

// writerOnly hides an underlying Sync method so zapcore substitutes a
// no-op. Process stdio rejects fsync with EINVAL on several platforms.
type writerOnly struct {
	io.Writer
}

// buildOutput creates the output writer based on the output configuration.
func buildOutput(outputPath string) (zapcore.WriteSyncer, error) {
	switch outputPath {
	case "", "stdout":
		return zapcore.AddSync(writerOnly{os.Stdout}), nil
	case "stderr":
		return zapcore.AddSync(writerOnly{os.Stderr}), nil
	default:
		//nolint:gosec // log files need broader read permissions
		file, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		return zapcore.AddSync(file), nil
	}
}

// buildSink wraps the sink in a buffered syncer unless disabled.
func buildSink(config *Config, sink zapcore.WriteSyncer) zapcore.WriteSyncer {
	if config.DisableBuffering {
		return sink
	}

	size := config.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	interval := config.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}

	return &zapcore.BufferedWriteSyncer{
		WS:            sink,
		Size:          size,
		FlushInterval: interval,
	}
}

// resolveLevel applies the environment-based default when no level is set.
func resolveLevel(config *Config) Level {
	if config.Level != "" {
		return config.Level
	}
	if config.Environment == "production" {
		return LevelInfo
	}
	return LevelDebug
}

// parseLevel parses a Level to zapcore.Level.
func parseLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a debug record.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.zap.Debug("", appendMessage(msg, fields)...)
}

// Info logs an info record.
func (l *Logger) Info(msg string, fields ...Field) {
	l.zap.Info("", appendMessage(msg, fields)...)
}

// Warn logs a warn record.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.zap.Warn("", appendMessage(msg, fields)...)
}

// Error logs an error record.
func (l *Logger) Error(msg string, fields ...Field) {
	l.zap.Error("", appendMessage(msg, fields)...)
}

// Fatal logs an error record and exits.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.zap.Fatal("", appendMessage(msg, fields)...)
}

// appendMessage prepends the message as a field when one was supplied.
// An empty message means no message: the record carries no message key.
func appendMessage(msg string, fields []Field) []Field {
	if msg == "" {
		return fields
	}
	out := make([]Field, 0, len(fields)+1)
	out = append(out, zap.String(KeyMessage, msg))
	return append(out, fields...)
}

// With creates a child logger with the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{
		zap:    l.zap.With(fields...),
		config: l.config,
		level:  l.level,
		sink:   l.sink,
	}
}

// WithContext creates a child logger carrying the request-scoped fields
// found in ctx. Only the well-known request keys are injected.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// SetLevel sets the log level dynamically.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(parseLevel(level))
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.InfoLevel:
		return LevelInfo
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

// Sync flushes buffered records to the sink. The sink's error is returned
// unmodified.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Close flushes and stops the buffered sink.
func (l *Logger) Close() error {
	if bws, ok := l.sink.(*zapcore.BufferedWriteSyncer); ok {
		return bws.Stop()
	}
	return l.Sync()
}

// SetGlobalLogger sets the global logger.
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the global logger, lazily initializing a
// default stdout logger when none was set.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		logger, err := New(DefaultConfig())
		if err != nil {
			logger = NewNop()
		}
		globalLogger = logger
	}
	return globalLogger
}

// L returns the global logger (shorthand for GetGlobalLogger).
func L() *Logger {
	return GetGlobalLogger()
}

// Debug logs a debug record to the global logger.
func Debug(msg string, fields ...Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs an info record to the global logger.
func Info(msg string, fields ...Field) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs a warn record to the global logger.
func Warn(msg string, fields ...Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs an error record to the global logger.
func Error(msg string, fields ...Field) {
	GetGlobalLogger().Error(msg, fields...)
}

// DebugContext logs a debug record with request-scoped fields from ctx.
func DebugContext(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().WithContext(ctx).Debug(msg, fields...)
}

// InfoContext logs an info record with request-scoped fields from ctx.
func InfoContext(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().WithContext(ctx).Info(msg, fields...)
}

// WarnContext logs a warn record with request-scoped fields from ctx.
func WarnContext(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().WithContext(ctx).Warn(msg, fields...)
}

// ErrorContext logs an error record with request-scoped fields from ctx.
func ErrorContext(ctx context.Context, msg string, fields ...Field) {
	GetGlobalLogger().WithContext(ctx).Error(msg, fields...)
}
