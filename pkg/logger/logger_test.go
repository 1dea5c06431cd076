package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestWithContextAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Get()
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	ctx := context.WithValue(context.Background(), RunIDKey, "run-1")
	ctx = context.WithValue(ctx, StageKey, "train")
	ctx = context.WithValue(ctx, ModelTypeKey, "random_forest")

	WithContext(ctx).Info("fitted")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "train", fields["stage"])
	assert.Equal(t, "random_forest", fields["model_type"])
}

func TestOrGlobal(t *testing.T) {
	l := zap.NewNop()
	assert.Same(t, l, OrGlobal(l))
	assert.NotNil(t, OrGlobal(nil))
}

func TestFromContextUsesGivenLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := context.WithValue(context.Background(), StageKey, "fit")

	FromContext(ctx, zap.New(core)).Info("fitted")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "fit", logs.All()[0].ContextMap()["stage"])
}
