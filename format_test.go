package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"negative", -5, "0 B"},
		{"bytes", 512, "512 B"},
		{"kilobytes", 1500, "1.5 kB"},
		{"megabytes", 10_000_000, "10 MB"},
		{"gigabytes", 1_500_000_000, "1.5 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSize(tt.bytes))
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	assert.Contains(t, formatTime(now.Add(2*time.Hour), now), "2 hours from now")
	assert.Contains(t, formatTime(now.Add(-3*time.Minute), now), "3 minutes ago")
}

func TestStatusf_Quiet(t *testing.T) {
	var buf bytes.Buffer

	cc := &CLIContext{Stderr: &buf}
	cc.Statusf("hello %s\n", "world")
	assert.Equal(t, "hello world\n", buf.String())

	buf.Reset()
	cc.Flags.Quiet = true
	cc.Statusf("hidden\n")
	assert.Empty(t, buf.String())
}

func TestWriteJSON_Indented(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}
