package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToRotatedFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, "debug")
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.Infof("reading %d stored", 42)

	data, err := os.ReadFile(filepath.Join(dir, "service.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "reading 42 stored")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(t.TempDir(), "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestNewNop_CloseIsSafe(t *testing.T) {
	logger := NewNop()
	logger.Errorf("discarded")
	assert.NoError(t, logger.Close())
}
