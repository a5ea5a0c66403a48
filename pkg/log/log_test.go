package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

func TestTestLoggerCapturesLevels(t *testing.T) {
	logger, buffer := NewTestLogger(LevelInfo)

	logger.Debug("hidden")
	logger.Info("batch started", BatchKey, 1, PipelineNameKey, "Mock")
	logger.Error("fit failed", fmt.Errorf("boom"), PipelineIDKey, 3)

	if strings.Contains(buffer.String(), "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !logger.ContainsMessage("batch started") {
		t.Error("info message not captured")
	}
	if !logger.ContainsField(BatchKey, 1.0) {
		t.Error("batch field not captured")
	}
	if !logger.ContainsField(ErrAttrKey, "boom") {
		t.Error("leading error should be stored under the error key")
	}

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestTestLoggerWith(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	child := logger.With(SearchIDKey, "abc")
	child.Debug("scored", ScoreKey, 0.5)

	if !logger.ContainsField(SearchIDKey, "abc") {
		t.Error("context field missing from child logger output")
	}
	if !child.Enabled(context.Background(), LevelDebug) {
		t.Error("child should inherit the debug level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestZerologLoggerInstallRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug, false)
	logger.Install()
	defer func() {
		errors.SetZerologWarnFunc(nil)
		SetLogger(nil)
	}()

	errors.Warn(errors.NewParameterNotUsedWarning([]string{"Fake"}))
	GetLogger().Info("pipeline scored", ScoreKey, 0.25)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	var warn map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &warn); err != nil {
		t.Fatal(err)
	}
	if warn["level"] != "warn" {
		t.Errorf("level = %v, want warn", warn["level"])
	}
	detail, ok := warn["warning"].(map[string]interface{})
	if !ok || detail["type"] != "ParameterNotUsedWarning" {
		t.Errorf("warning object not marshalled: %v", warn)
	}
}

func TestSlogLoggerAddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := NewSlogLogger(slog.New(handler))

	logger.Error("evaluation failed", errors.NewValueError("Score", "bad"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if _, ok := entry[StacktraceAttrKey]; !ok {
		t.Errorf("expected %q attribute in %v", StacktraceAttrKey, entry)
	}
}
