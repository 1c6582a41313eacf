package httplog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/aeturnum/spins-halp-line/internal/httplog"
)

func TestNew_StdoutOnly(t *testing.T) {
	logger, err := httplog.New(httplog.Config{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := httplog.New(httplog.Config{Level: "not-a-level"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_WithFileRotationWritesToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tipline.log")
	logger, err := httplog.New(httplog.Config{Level: "debug", FilePath: path})
	require.NoError(t, err)

	logger.Info("wrote a line")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wrote a line")
}
