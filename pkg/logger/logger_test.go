package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitDefaultsEmptyLevelAndOutput(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	require.NoError(t, Init("", "json", ""))
	assert.True(t, Log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Log.Core().Enabled(zapcore.DebugLevel))
}

func TestInitRejectsInvalidLevel(t *testing.T) {
	assert.Error(t, Init("loud", "json", "stdout"))
}

func TestInitWritesToFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := t.TempDir() + "/app.log"
	require.NoError(t, Init("debug", "console", path))

	Info("started")
	Sync()

	assert.FileExists(t, path)
}
