package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestInit_ReplacesGlobal(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init(Config{Level: "debug", Encoding: "json"}))
	assert.NotSame(t, prev, Get())
	assert.True(t, Get().Core().Enabled(zap.DebugLevel))
}

func TestGet_Default(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	Set(nil)
	l := Get()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}
