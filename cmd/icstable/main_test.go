package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icstable/internal/ics"
	"icstable/internal/value"
)

func TestRunOnceWritesOneValuePerInput(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ics")
	b := filepath.Join(dir, "b.ics")
	require.NoError(t, os.WriteFile(a, []byte("BEGIN:VCALENDAR\nEND:VCALENDAR\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("garbage\nBEGIN:VCALENDAR\nEND:VCALENDAR\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, runOnce([]string{a, b}, ics.Options{}, value.FormatJSON, &out))

	dec := json.NewDecoder(&out)
	var first, second []map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.Len(t, first, 1)
	require.Len(t, second, 2)
	assert.Contains(t, second[0], "error")
	assert.Contains(t, second[1], "events")
}

func TestRunOnceMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := runOnce([]string{filepath.Join(t.TempDir(), "nope.ics")}, ics.Options{}, value.FormatJSON, &out)
	assert.Error(t, err)
}
