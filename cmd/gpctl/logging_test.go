package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerAutoUsesJSONForNonTerminals(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", "auto")
	require.NoError(t, err)

	logger.Info("hello", "generation", 3)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, float64(3), line["generation"])
}

func TestNewLoggerHonorsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")

	_, err = newLogger(&buf, "info", "xml")
	require.ErrorContains(t, err, "invalid log format")
}
