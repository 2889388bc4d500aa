package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	mmerrors "github.com/YuminosukeSato/musicmap/pkg/errors"
)

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
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel)).
		With(ComponentKey, "dataset")

	logger.Debug("hidden")
	logger.Info("Table loaded", SamplesKey, 953, PathKey, "data/in.csv")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["message"] != "Table loaded" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry[ComponentKey] != "dataset" {
		t.Errorf("component = %v", entry[ComponentKey])
	}
	if entry[SamplesKey] != 953.0 {
		t.Errorf("samples = %v", entry[SamplesKey])
	}
}

func TestZerologLoggerErrorAttachesError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Error("Write failed", mmerrors.NewIOError("write", "out.csv", fmt.Errorf("disk full")), OperationKey, OperationWrite)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fmt.Sprint(entry[zerolog.ErrorFieldName]), "disk full") {
		t.Errorf("error field = %v", entry[zerolog.ErrorFieldName])
	}
	if entry[OperationKey] != OperationWrite {
		t.Errorf("operation = %v", entry[OperationKey])
	}
}

func TestZerologLoggerEnabled(t *testing.T) {
	logger := NewZerologLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if logger.Enabled(context.Background(), LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestSetupRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	prev := GetLogger()
	defer SetDefault(prev)
	defer mmerrors.SetZerologWarnFunc(nil)

	if _, err := Setup("info", &buf); err != nil {
		t.Fatal(err)
	}
	mmerrors.Warn(mmerrors.NewConstantFeatureWarning("StandardScaler.Fit", 2, 7))

	out := buf.String()
	if !strings.Contains(out, `"type":"ConstantFeatureWarning"`) {
		t.Errorf("warning fields not embedded: %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("warning not logged at warn level: %s", out)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup("loud", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestGetLoggerWithName(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	prev := GetLogger()
	SetDefault(testLogger)
	defer SetDefault(prev)

	GetLoggerWithName("manifold").Info("fit started", OperationKey, OperationFit)

	if !testLogger.ContainsField(ComponentKey, "manifold") {
		t.Error("component name not attached")
	}
	if !testLogger.ContainsField(OperationKey, OperationFit) {
		t.Error("operation field missing")
	}
}

func TestTestLoggerLevels(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)

	testLogger.Debug("debug message")
	testLogger.Info("info message")
	testLogger.Warn("warning message", "code", "W1")
	testLogger.Error("error message", fmt.Errorf("boom"), "code", "E1")

	if testLogger.ContainsMessage("debug message") || testLogger.ContainsMessage("info message") {
		t.Error("records below the minimum level should be dropped")
	}
	if !testLogger.ContainsMessage("warning message") {
		t.Error("warning not captured")
	}
	if !testLogger.ContainsField(ErrorKey, "boom") {
		t.Error("leading error should be captured under the error key")
	}
	if !testLogger.ContainsField("code", "E1") {
		t.Error("fields after the error should be kept")
	}

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}

	testLogger.Clear()
	if testLogger.ContainsMessage("warning message") {
		t.Error("Clear should drop captured records")
	}
}
