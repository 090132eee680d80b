package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

func TestWithInvocationID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{zap.New(core)}

	ctx := ContextWithInvocationID(context.Background(), "abc-123")
	l.WithInvocationID(ctx).Info("tagged")
	l.WithInvocationID(context.Background()).Info("untagged")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "abc-123", entries[0].ContextMap()["invocation_id"])
	assert.NotContains(t, entries[1].ContextMap(), "invocation_id")
}
