package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrate.log")
	log, err := New(Config{Level: "info", Encoding: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("hidden")
	log.Info("entered scene", zap.String("scene", "start"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d:\n%s", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["level"] != "INFO" || entry["scene"] != "start" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp key")
	}
}

func TestNewDefaultsToWarn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrate.log")
	log, err := New(Config{OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled by default")
	}
	if !log.Core().Enabled(zap.WarnLevel) {
		t.Error("warn should be enabled by default")
	}
}

func TestNewInvalidLevelFallsBack(t *testing.T) {
	log, err := New(Config{Level: "chatty", OutputPath: filepath.Join(t.TempDir(), "x.log")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zap.WarnLevel) || log.Core().Enabled(zap.InfoLevel) {
		t.Error("expected warn level after fallback")
	}
}

func TestNewBadOutputPath(t *testing.T) {
	_, err := New(Config{OutputPath: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
