package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestErrorAddsErrField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))
	t.Cleanup(func() { Use(zap.NewNop()) })

	Error("store save failed", errors.New("disk full"), "key", "ds_students")
	Info("booking created", "date", "2024-06-03")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	errEntry := entries[0]
	assert.Equal(t, zapcore.ErrorLevel, errEntry.Level)
	fields := errEntry.ContextMap()
	assert.Equal(t, "disk full", fields["err"])
	assert.Equal(t, "ds_students", fields["key"])

	assert.Equal(t, "booking created", entries[1].Message)
	assert.Equal(t, "2024-06-03", entries[1].ContextMap()["date"])
}
