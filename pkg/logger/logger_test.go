package logger_test

import (
	"context"
	"testing"
	"urlguard/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		wantErr     bool
		wantDebug   bool
	}{
		{name: "development", environment: logger.DevelopmentEnvironment, wantDebug: true},
		{name: "production", environment: logger.ProductionEnvironment, wantDebug: false},
		{name: "production with debug override", environment: logger.ProductionEnvironment, level: "debug", wantDebug: true},
		{name: "development with warn override", environment: logger.DevelopmentEnvironment, level: "warn"},
		{name: "bad level", environment: logger.DevelopmentEnvironment, level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := logger.Setup(tt.environment, tt.level)
			if tt.wantErr {
				require.Error(t, err)

				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger.Get(context.Background()))
			require.Equal(t, tt.wantDebug, logger.IsDebug(context.Background()))
		})
	}
}

func TestWithLogger(t *testing.T) {
	custom := zap.NewExample()
	ctx := logger.WithLogger(context.Background(), custom)
	require.Equal(t, custom, logger.Get(ctx), "Logger in context should match the one we added")
}

func TestWithFieldsAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))

	ctx = logger.WithFields(ctx, zap.String("url", "https://example.com/"), zap.Int("tabId", 7))
	ctx = logger.Named(ctx, "interceptor")
	logger.Info(ctx, "decided")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "interceptor", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	require.Equal(t, "https://example.com/", fields["url"])
	require.EqualValues(t, 7, fields["tabId"])
}

func TestLoggingFunctions(t *testing.T) {
	require.NoError(t, logger.Setup(logger.DevelopmentEnvironment, ""))
	ctx := context.Background()

	require.NotPanics(t, func() {
		logger.Debug(ctx, "debug message", zap.String("key", "value"))
		logger.Info(ctx, "info message", zap.String("key", "value"))
		logger.Warn(ctx, "warn message", zap.String("key", "value"))
		logger.Error(ctx, "error message", zap.String("key", "value"))
	})
}
