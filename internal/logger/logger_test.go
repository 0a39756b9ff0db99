package logger

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
    lvl, err := parseLevel("WARN")
    require.NoError(t, err)
    assert.Equal(t, zapcore.WarnLevel, lvl)

    _, err = parseLevel("loud")
    assert.Error(t, err)
}

func TestNewHonoursLevel(t *testing.T) {
    log, err := New("error", false)
    require.NoError(t, err)
    assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
    assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}
