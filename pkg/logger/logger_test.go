package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetAndLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := L()
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	Debug("hidden")
	Info("follow created", zap.String("follower", "a"), zap.String("followee", "b"))
	Warn("queue full")

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "follow created", entry.Message)
	assert.Equal(t, "a", entry.ContextMap()["follower"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestInit(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init("debug", "console"))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("not-a-level", "json"))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
}
