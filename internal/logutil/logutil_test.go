package logutil_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askiada/go-powerdag/internal/logutil"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logutil.New("info", "json", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("segment split", zap.Int("jobs", 4))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "segment split", entry["msg"])
	assert.Equal(t, float64(4), entry["jobs"])
}

func TestNewInvalid(t *testing.T) {
	t.Parallel()

	_, err := logutil.New("loud", "json", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = logutil.New("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}
