package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("loud")
	require.Error(t, err)

	l, err := NewLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestLogger_WithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).With(zap.String("run_id", "abc"))

	l.Info("loaded")
	l.Warn("column missing", zap.String("column", "dateScanned.$date"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0].ContextMap()["run_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "dateScanned.$date", entries[1].ContextMap()["column"])
}

func TestLogger_ZeroValueIsNoop(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() {
		l.Info("nothing")
		l.Error("nothing")
		_ = l.Sync()
	})
}
