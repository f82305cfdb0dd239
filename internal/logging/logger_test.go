package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anitrack/internal/logging"
	"anitrack/internal/services"
	"anitrack/internal/testsupport"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Format = "json"

	var stderr bytes.Buffer
	runtime, err := logging.NewFromConfig(cfg, &stderr, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	runtime.Logger.Info("hello", logging.String("title", "Frieren"))
	if err := runtime.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if runtime.Path != filepath.Join(cfg.Paths.LogDir, logging.LogFileName) {
		t.Fatalf("unexpected log path %q", runtime.Path)
	}
	data, err := os.ReadFile(runtime.Path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("decode record %q: %v", data, err)
	}
	if record["msg"] != "hello" || record["title"] != "Frieren" {
		t.Fatalf("unexpected record %v", record)
	}
	if record[logging.FieldSessionID] != runtime.SessionID || runtime.SessionID == "" {
		t.Fatalf("expected session id %q in %v", runtime.SessionID, record)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected quiet stderr, got %q", stderr.String())
	}
}

func TestNewFromConfigVerboseTeesToStderr(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "warn"

	var stderr bytes.Buffer
	runtime, err := logging.NewFromConfig(cfg, &stderr, true)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	defer runtime.Close()

	runtime.Logger.Info("visible on console")
	if !strings.Contains(stderr.String(), "visible on console") {
		t.Fatalf("expected verbose console output, got %q", stderr.String())
	}
	data, err := os.ReadFile(runtime.Path)
	if err == nil && strings.Contains(string(data), "visible on console") {
		t.Fatal("file handler should still honour the configured warn level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithShowID(ctx, "show-7")
	ctx = services.WithAction(ctx, "replay")
	ctx = services.WithRequestID(ctx, "run-xyz")

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for key, want := range map[string]string{
		logging.FieldShowID: "show-7",
		logging.FieldAction: "replay",
		logging.FieldRunID:  "run-xyz",
	} {
		if record[key] != want {
			t.Fatalf("field %s = %v, want %q", key, record[key], want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger, "metadata lookup failed", "metadata_unavailable", logging.String(logging.FieldImpact, "navigation falls back to the title"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "metadata_unavailable" || record[logging.FieldErrorHint] == nil {
		t.Fatalf("missing defaults in %v", record)
	}
	if record[logging.FieldImpact] != "navigation falls back to the title" {
		t.Fatalf("caller impact overwritten: %v", record)
	}
}
