package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerRendersFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = logger.With(String(FieldComponent, "engine"))
	logger.Info("stage advanced",
		String(FieldItemID, "GRV-1"),
		String(FieldStage, "sewing"),
	)

	out := buf.String()
	for _, want := range []string{"INFO", "[engine]", "stage advanced", "item_id=GRV-1", "stage=sewing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %s", want, out)
		}
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should have been suppressed: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestConsoleHandlerFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Info("scan rejected", slog.Group("gate", String("expected", "cut"), String("actual", "sew")))

	out := buf.String()
	if !strings.Contains(out, "gate.expected=cut") || !strings.Contains(out, "gate.actual=sew") {
		t.Fatalf("grouped attrs not flattened: %s", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestQuotedValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Info("note", String("reason", "damaged in transit"))

	if !strings.Contains(buf.String(), `reason="damaged in transit"`) {
		t.Fatalf("value with spaces not quoted: %s", buf.String())
	}
}
