package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(false, &buf, "")
	l.Debug("hidden")
	l.Info("shown", zap.Int("ways", 3))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"ways": 3`) {
		t.Errorf("unexpected console output %q", out)
	}

	buf.Reset()
	New(true, &buf, "").Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug entry missing at debug level")
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osm3d.log")
	var buf bytes.Buffer
	l := New(false, &buf, path)
	l.Info("Parsed document", zap.Int64("nodes", 42))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, data)
	}
	if entry["msg"] != "Parsed document" || entry["nodes"] != float64(42) {
		t.Errorf("entry = %v", entry)
	}
}

func TestReplace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))

	Get().Warn("replaced")
	restore()

	if logs.FilterMessage("replaced").Len() != 1 {
		t.Errorf("entries = %v", logs.All())
	}
	Get().Warn("after restore")
	if logs.Len() != 1 {
		t.Error("restored logger still writes to the observer")
	}
}
