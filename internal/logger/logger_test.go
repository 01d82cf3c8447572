package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, ok := logger.ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, logger.DebugLevel, level)

	level, ok = logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.WarnLevel, level)

	_, ok = logger.ParseLevel("verbose")
	assert.False(t, ok)
}

func TestComponentLogger(t *testing.T) {
	logger.SetLogLevel(logger.DebugLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	var buf bytes.Buffer
	log := logger.New(&buf, "cpu")
	log.ErrorWithCode(errors.New().WithData(errors.ErrIO, "/sys/x")).Msg("write failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cpu", entry["component"])
	assert.Equal(t, "io_error", entry["error_code"])
	assert.Equal(t, "write failed", entry["message"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Nop().Info().Int("cores", 4).Msg("discarded")
	})
}
