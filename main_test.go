package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	log, flush, err := newLogger("debug", true)
	require.NoError(t, err)
	defer flush()
	assert.True(t, log.V(1).Enabled())

	log, flush, err = newLogger("error", false)
	require.NoError(t, err)
	defer flush()
	assert.False(t, log.V(0).Enabled())

	_, _, err = newLogger("chatty", false)
	assert.Error(t, err)
}

func TestWritePreview(t *testing.T) {
	p := testPipeline(t, &mockCollector{}, &mockSender{})
	out := filepath.Join(t.TempDir(), "report.html")

	require.NoError(t, writePreview(context.Background(), p, out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(b)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "data:image/png;base64,")
}
