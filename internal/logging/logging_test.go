package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("info", FormatStructured, &buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("visible")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "visible", entry["msg"])

	buf.Reset()
	console, err := NewLogger("debug", FormatConsole, &buf)
	require.NoError(t, err)
	console.Debug("plain")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "plain")
}

func TestNewLogger_Rejects(t *testing.T) {
	_, err := NewLogger("trace", FormatConsole, nil)
	assert.Error(t, err)
	_, err = NewLogger("info", "xml", nil)
	assert.Error(t, err)
}

func TestColorFor_Deterministic(t *testing.T) {
	color.NoColor = false
	defer func() { color.NoColor = true }()

	a := ColorFor("buildo/alpha").Sprint("x")
	b := ColorFor("buildo/alpha").Sprint("x")
	assert.Equal(t, a, b)
}

func TestRepoPrinter_TagsEveryLine(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Repo("buildo/alpha").Printf("first\n\nsecond\n")
	c.Repo("buildo/beta").Error(errors.New("clone: boom"))
	c.Println("untagged")

	assert.Equal(t,
		"[buildo/alpha]  first\n[buildo/alpha]\n[buildo/alpha]  second\n[buildo/beta]  error: clone: boom\nuntagged\n",
		buf.String())
}
