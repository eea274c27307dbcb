package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingestor.log")

	logger, err := NewLogger("ingestor-test", "info", path)
	require.NoError(t, err)

	logger.Error("message discarded")
	logger.Debug("below level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "message discarded")
	assert.Contains(t, string(data), `"service":"ingestor-test"`)
	assert.NotContains(t, string(data), "below level")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("ingestor-test", "loud", "")
	assert.Error(t, err)
}
