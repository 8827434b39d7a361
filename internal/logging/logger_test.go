package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("replay started", "events", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "replay started")
	assert.Contains(t, out, "events=7")
	assert.Contains(t, out, Prefix)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug")
	require.NoError(t, err)

	Component(logger, "processor").Error("CS1002: ; expected", "file", "a.cs")

	assert.Contains(t, buf.String(), "buildlens/processor")
	assert.Contains(t, buf.String(), "file=a.cs")
}

func TestComponent_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Component(nil, "x").Info("dropped")
	})
}
