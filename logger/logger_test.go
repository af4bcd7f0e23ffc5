package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel(DebugLevel))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(InfoLevel))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(WarnLevel))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(ErrorLevel))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("WARN"))
	assert.False(t, ValidLevel(""))
}

func TestWith(t *testing.T) {
	l := New(DebugLevel).With("controller", "a")
	assert.NotNil(t, l.SugaredLogger)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))

	assert.NotPanics(t, func() { Nop().With("k", "v").Infow("dropped") })
}
