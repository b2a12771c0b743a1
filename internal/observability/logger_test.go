package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jaydenhoang5291/ue-profile/internal/auth"
)

func observedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLogger(zap.New(core)), logs
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		wantErr bool
	}{
		{name: "development environment", env: "development"},
		{name: "production environment", env: "production"},
		{name: "staging environment", env: "staging"},
		{name: "cli environment", env: "cli"},
		{name: "invalid environment", env: "invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := InitLogger(tt.env)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, logger)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.NotNil(t, logger.Logger)
		})
	}
}

func TestInitLoggerWithLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	logger, err := InitLogger("production")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestInitLoggerInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := InitLogger("production")
	assert.Error(t, err)
}

func TestLoggerWithContext(t *testing.T) {
	logger, logs := observedLogger()

	ctx := auth.ContextWithRequestID(context.Background(), "req-1")
	ctx = auth.ContextWithPrincipal(ctx, &auth.Principal{UserID: "alice"})

	logger.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "alice", fields["user_id"])

	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestLoggerWithFieldsAndComponent(t *testing.T) {
	logger, logs := observedLogger()

	logger.WithComponent("storage").WithFields(zap.String("supi", "imsi-1")).WithError(assert.AnError).Warn("oops")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "storage", fields["component"])
	assert.Equal(t, "imsi-1", fields["supi"])
	assert.Equal(t, assert.AnError.Error(), fields["error"])
}

func TestLogProfileOperation(t *testing.T) {
	logger, logs := observedLogger()

	logger.LogProfileOperation("create", "imsi-208930000000001", 1, nil)
	logger.LogProfileOperation("delete", "imsi-208930000000002", 0, assert.AnError)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "create", entries[0].ContextMap()["operation"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "imsi-208930000000002", entries[1].ContextMap()["supi"])
}

func TestLogProfileEvent(t *testing.T) {
	logger, logs := observedLogger()

	logger.LogProfileEvent("created", "imsi-1", map[string]any{"user_id": "alice"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "created", fields["event"])
	assert.Equal(t, "alice", fields["user_id"])
}

func TestLogRedisOperation(t *testing.T) {
	logger, logs := observedLogger()

	logger.LogRedisOperation("GET", "ueprofile:imsi-1", nil)
	logger.LogRedisOperation("SET", "ueprofile:imsi-1", assert.AnError)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestLogRequest(t *testing.T) {
	logger, logs := observedLogger()

	logger.LogRequest("GET", "/ue_profiles", 200, 1.5, zap.String("client_ip", "10.0.0.1"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "10.0.0.1", fields["client_ip"])
}

func TestLoggerSync(t *testing.T) {
	assert.NoError(t, NewLogger(nil).Sync())
}
