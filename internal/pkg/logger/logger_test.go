package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewZapLogger(t *testing.T) {
	l, err := NewZapLogger(Config{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = NewZapLogger(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = NewZapLogger(Config{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}

func TestSlogAdapterWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	InitFromZap(zap.New(core))
	t.Cleanup(func() { InitSlog("INFO") })

	log := NewSlogAdapter("component", "statestore")
	log.Info("state saved", "bytes", 42)
	log.Debug("noise")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "state saved", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "statestore", fields["component"])
	assert.EqualValues(t, 42, fields["bytes"])
}

func TestInitFromZapHonoursLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	InitFromZap(zap.New(core))
	t.Cleanup(func() { InitSlog("INFO") })

	Info("dropped")
	Warn("kept", "attempt", 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}

func TestNewComponentLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	log := NewComponentLogger(zap.New(core), "registry")
	log.Info("custom network added", "chainId", "0x539")
	log.Debug("below level")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "registry", fields["component"])
	assert.Equal(t, "0x539", fields["chainId"])
}
