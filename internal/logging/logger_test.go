package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelInfo, WithWriter(&buf))

	logger.Debug("hidden")
	logger.Info("Session Finished", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "err=boom")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelDebug, WithWriter(&buf), WithFormat(FormatJSON))

	logger.Debug("Enter Node", "node_id", "ask")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Enter Node", entry["msg"])
	assert.Equal(t, "ask", entry["node_id"])
}

func TestNewNop(t *testing.T) {
	assert.False(t, NewNop().Enabled(context.Background(), slog.LevelError))
}
