package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"selfbot/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "dispatch").Info("Command completed", "request_id", "42", "ok", true)

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Command completed" {
		t.Fatalf("message = %q, want %q", entry.Message, "Command completed")
	}
	if entry.Component != "dispatch" {
		t.Fatalf("component = %q, want %q", entry.Component, "dispatch")
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if got := entry.Fields["request_id"]; got != "42" {
		t.Fatalf("fields.request_id = %v, want %q", got, "42")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv("SELFBOT_LOG_LEVEL", "debug")
	t.Setenv("SELFBOT_LOG_FORMAT", "text")
	defer unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func TestNewAppendsToLogFile(t *testing.T) {
	unsetLoggingEnv(t)

	path := filepath.Join(t.TempDir(), "logs", "selfbot.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("previous line\n"), 0o644); err != nil {
		t.Fatalf("seed log file: %v", err)
	}

	log, closer, err := New(config.LoggingConfig{Format: "json", Level: "info"}, path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	log.Info("Module loaded", "module", "hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log file: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2: %q", len(lines), string(content))
	}
	if lines[0] != "previous line" {
		t.Fatalf("first line = %q, want previous content kept", lines[0])
	}
	if !strings.Contains(lines[1], `"message":"Module loaded"`) {
		t.Fatalf("second line = %q, want appended record", lines[1])
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	_ = os.Unsetenv("SELFBOT_LOG_LEVEL")
	_ = os.Unsetenv("SELFBOT_LOG_FORMAT")
	_ = os.Unsetenv("SELFBOT_LOG_ADD_SOURCE")
}
