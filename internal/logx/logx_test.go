package logx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWritesJSONAtConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", FormatJSON)
	log.Info().Msg("hidden")
	log.Warn().Str("run_id", "run_1").Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "visible" || entry["run_id"] != "run_1" || entry["level"] != "warn" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestNewDefaultsToInfoOnBadLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty", FormatJSON)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output for default level: %q", buf.String())
	}
}
