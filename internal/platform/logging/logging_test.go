package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn message missing: %s", out)
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "chatty")

	logger.Debug().Msg("debug line")
	logger.Info().Msg("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Fatalf("debug logged at fallback info level: %s", out)
	}
	if !strings.Contains(out, "info line") {
		t.Fatalf("info line missing: %s", out)
	}
}
