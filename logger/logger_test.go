package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{" warn ", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestSlogLogger_JSONOutput(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)

	l.Info("reading published", "device", "ph", "value", 7.01)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "reading published", rec["msg"])
	assert.Equal(t, "ph", rec["device"])
	assert.InDelta(t, 7.01, rec["value"], 1e-9)
	assert.Contains(t, rec, "ts")
}

func TestSlogLogger_Level(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, WarnLevel, false)
	assert.Equal(t, WarnLevel, l.Level())

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())

	l.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSlogLogger_WithSharesLevel(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	parent := NewSlogWithWriter(&buf, ErrorLevel, false)
	child := parent.With("device", "ec")

	child.Warn("hidden")
	assert.Zero(t, buf.Len())

	parent.SetLevel(WarnLevel)
	child.Warn("visible")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "visible", rec["msg"])
	assert.Equal(t, "ec", rec["device"])
}

func TestMockLogger_AllowAll(t *testing.T) {
	m := NewMockLogger().AllowAll()

	m.Warn("read already pending", "device", "ph")
	m.Warn("read already pending", "device", "ph")
	m.Error("device returned no data")

	assert.Equal(t, 2, m.CountCalls("Warn", "read already pending"))
	assert.Equal(t, 1, m.CountCalls("Error", "device returned no data"))
	assert.Equal(t, 0, m.CountCalls("Info", "read already pending"))
	assert.Same(t, m, m.With("device", "ph"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat(" Console ")
	require.NoError(t, err)
	assert.Equal(t, FormatConsole, f)

	f, err = ParseFormat("text")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestSlogLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWithOptions(&buf, SlogOptions{Level: InfoLevel, Format: FormatText})

	l.With("device", "do").Warn("incomplete reading", "fields", 1)

	out := buf.String()
	assert.Contains(t, out, "ts=")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="incomplete reading"`)
	assert.Contains(t, out, "device=do")
	assert.Contains(t, out, "fields=1")
}
