package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("production", "info", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("uid", "alice").Msg("signed in")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "signed in", line["message"])
	assert.Equal(t, "alice", line["uid"])
	assert.Equal(t, "firechat", line["service"])
}

func TestDevelopmentLogsConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New("development", "bogus", &buf)

	logger.Info().Msg("ready")
	assert.Contains(t, buf.String(), "ready")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
