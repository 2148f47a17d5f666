package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["message"] != "shown" || entry["component"] != "test" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "loud", "json")

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNewPrettyIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "pretty")
	log.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}
