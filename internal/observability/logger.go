package observability

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jaydenhoang5291/ue-profile/internal/auth"
)

// Logger is a wrapper around zap.Logger with additional convenience methods.
type Logger struct {
	*zap.Logger
}

// InitLogger builds a logger for the specified environment.
// Valid environments: development, test, staging, production, cli.
// The LOG_LEVEL environment variable overrides the environment's level.
func InitLogger(env string) (*Logger, error) {
	return InitLoggerWithLevel(env, os.Getenv("LOG_LEVEL"))
}

// InitLoggerWithLevel is like InitLogger with an explicit level. An empty
// level keeps the environment's default.
func InitLoggerWithLevel(env, level string) (*Logger, error) {
	var config zap.Config

	switch env {
	case "development", "test":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "production", "staging":
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "cli":
		// Console tools only print warnings and errors to stderr.
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		config.DisableStacktrace = true
		config.DisableCaller = true
		config.EncoderConfig.TimeKey = ""
	default:
		return nil, fmt.Errorf("invalid environment: %s (must be development, test, staging, production or cli)", env)
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	zapLogger, err := config.Build(
		zap.AddCallerSkip(1), // Skip wrapper functions in stack trace
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{Logger: zapLogger}, nil
}

// NewLogger wraps an existing zap logger.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{Logger: l}
}

// WithContext creates a new logger with fields from the context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := ExtractContextFields(ctx)
	if len(fields) > 0 {
		return &Logger{Logger: l.With(fields...)}
	}
	return l
}

// WithFields creates a new logger with additional fields.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.With(fields...)}
}

// WithError adds an error field to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(zap.Error(err))}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With(zap.String("component", component))}
}

// ExtractContextFields extracts the request ID and authenticated user
// from ctx as logging fields.
func ExtractContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if requestID := auth.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID := auth.UserIDFromContext(ctx); userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}

	return fields
}

// Sync flushes any buffered log entries.
// Should be called before application shutdown.
func (l *Logger) Sync() error {
	if err := l.Logger.Sync(); err != nil {
		return fmt.Errorf("failed to sync logger: %w", err)
	}
	return nil
}

// Helper methods for common logging patterns

// LogRequest logs an HTTP request. duration is in milliseconds.
func (l *Logger) LogRequest(method, path string, statusCode int, duration float64, fields ...zap.Field) {
	l.Info("http request", append([]zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", statusCode),
		zap.Float64("duration_ms", duration),
	}, fields...)...)
}

// LogProfileOperation logs a UE profile operation.
func (l *Logger) LogProfileOperation(operation, supi string, count int, err error) {
	if err != nil {
		l.Error("profile operation failed",
			zap.String("operation", operation),
			zap.String("supi", supi),
			zap.Int("count", count),
			zap.Error(err),
		)
		return
	}
	l.Info("profile operation completed",
		zap.String("operation", operation),
		zap.String("supi", supi),
		zap.Int("count", count),
	)
}

// LogProfileEvent logs a published profile change event at debug level.
func (l *Logger) LogProfileEvent(eventType, supi string, details map[string]any) {
	fields := []zap.Field{
		zap.String("event", eventType),
		zap.String("supi", supi),
	}

	for key, value := range details {
		fields = append(fields, zap.Any(key, value))
	}

	l.Debug("profile event", fields...)
}

// LogRedisOperation logs a Redis operation.
func (l *Logger) LogRedisOperation(operation string, key string, err error) {
	if err != nil {
		l.Error("redis operation failed",
			zap.String("operation", operation),
			zap.String("key", key),
			zap.Error(err),
		)
	} else {
		l.Debug("redis operation completed",
			zap.String("operation", operation),
			zap.String("key", key),
		)
	}
}
