package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uratmangun/ai-custodial-wallet/logger"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New("warn", "json", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", logger.Collection("wallet"), logger.Error(errors.New("boom")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "wallet", line["collection"])
	assert.Equal(t, "boom", line["error"])
}

func TestNewRejectsUnknown(t *testing.T) {
	_, err := logger.New("loud", "text", &bytes.Buffer{})
	require.Error(t, err)

	_, err = logger.New("info", "xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := logger.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	lvl, err = logger.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestErrorNil(t *testing.T) {
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}
