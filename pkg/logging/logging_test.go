package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "info", "json").Info("flushed delta buffer", "bytes", 6)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected json output, got %q: %v", buf.String(), err)
		}
		if entry["msg"] != "flushed delta buffer" {
			t.Errorf("msg = %v", entry["msg"])
		}
		if entry["bytes"] != float64(6) {
			t.Errorf("bytes = %v", entry["bytes"])
		}
	})

	t.Run("text format filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, "warn", "text")
		l.Info("hidden")
		l.Warn("shown")
		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Error("expected info to be filtered at warn level")
		}
		if !strings.Contains(out, "msg=shown") {
			t.Errorf("expected warn line, got %q", out)
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
