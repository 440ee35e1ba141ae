package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)

	l.Debug().Msg("hidden")
	l.Info().Str("terminology", "loinc").Int("entries", 3).Msg("dictionary loaded")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines; want 1: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid JSON %q: %v", lines[0], err)
	}
	if rec["component"] != Component {
		t.Errorf("component = %v; want %s", rec["component"], Component)
	}
	if rec["message"] != "dictionary loaded" {
		t.Errorf("message = %v", rec["message"])
	}
	if rec["entries"] != float64(3) {
		t.Errorf("entries = %v; want 3", rec["entries"])
	}
}

func TestDefault_SetLevel(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(New(&buf, LevelDebug))
	SetLevel(LevelWarn)

	l := Default()
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn message should be written")
	}

	buf.Reset()
	Disable()
	l = Default()
	l.Error().Msg("silent")
	if buf.Len() != 0 {
		t.Errorf("Disable() still wrote %q", buf.String())
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, LevelInfo)
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("console output %q does not contain message", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"none", LevelNone},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) should fail")
	}
}
