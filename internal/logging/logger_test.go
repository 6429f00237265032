package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

func TestPrettyHandlerLiftsSubjectFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("converted file",
		String(FieldComponent, "pipeline"),
		String(FieldTaskID, "abc123"),
		String(FieldStage, "convert"),
		Int("bytes", 2048),
		String("path", "/tmp/some file.webm"),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO [abc123 convert] pipeline: converted file") {
		t.Fatalf("unexpected console prefix: %q", line)
	}
	if !strings.Contains(line, "bytes=2048") {
		t.Fatalf("expected bytes attribute, got %q", line)
	}
	if !strings.Contains(line, `path="/tmp/some file.webm"`) {
		t.Fatalf("expected quoted path, got %q", line)
	}
	if strings.Contains(line, "component=") || strings.Contains(line, "task_id=") {
		t.Fatalf("subject fields should not repeat in tail: %q", line)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN shown") {
		t.Fatalf("expected warn line, got %q", out)
	}
}

func TestPrettyHandlerGroupsFlatten(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))

	logger.WithGroup("sticker").Info("resized", Int("width", 512))

	if !strings.Contains(buf.String(), "sticker.width=512") {
		t.Fatalf("expected grouped key, got %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))

	logger.Warn("budget exceeded", Pack("cats_by_bot"), SizeKB("size_kb", 300*1024), Error(nil))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lower-case level, got %v", payload["level"])
	}
	ts, _ := payload["ts"].(string)
	if _, err := time.Parse(jsonTimeLayout, ts); err != nil || !strings.HasSuffix(ts, "Z") {
		t.Fatalf("expected UTC millisecond ts, got %q (%v)", ts, err)
	}
	if payload["pack"] != "cats_by_bot" || payload["size_kb"] != 300.0 {
		t.Fatalf("unexpected fields %v", payload)
	}
	if _, ok := payload["error"]; ok {
		t.Fatalf("nil error should not be logged: %v", payload)
	}
	if payload["msg"] != "budget exceeded" {
		t.Fatalf("unexpected msg %v", payload["msg"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "debug"

	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Debug("hello file")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "stickerpack.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))

	ctx := services.WithTaskID(context.Background(), "task-9")
	ctx = services.WithStage(ctx, "upload")
	ctx = services.WithRequestID(ctx, "req-1")

	WithContext(ctx, base).Info("uploading")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[FieldTaskID] != "task-9" || payload[FieldStage] != "upload" || payload[FieldCorrelationID] != "req-1" {
		t.Fatalf("missing context fields: %v", payload)
	}
}

func TestNewComponentLoggerNilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "uploader")
	if logger == nil {
		t.Fatal("expected logger")
	}
	logger.Info("discarded")
}
