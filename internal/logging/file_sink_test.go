package logging

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileSinkAppendsAcrossSessions(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, MainLogFileName)
	if err := os.WriteFile(path, []byte("[earlier] INFO previous session\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	sink, err := newFileSink(tmp)
	if err != nil {
		t.Fatalf("newFileSink() error = %v", err)
	}
	event := Event{
		Time:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Level:   slog.LevelInfo,
		Message: "backend spawned",
		Fields:  map[string]any{"pid": 4242},
	}
	if err := sink.WriteEvent(event); err != nil {
		t.Fatalf("WriteEvent() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}
	if lines[0] != "[earlier] INFO previous session" {
		t.Fatalf("previous content was not preserved: %q", lines[0])
	}
	if want := "[2026-03-01T12:00:00Z] INFO backend spawned pid=4242"; lines[1] != want {
		t.Fatalf("line = %q, want %q", lines[1], want)
	}
}

func TestFileSinkRejectsWritesAfterClose(t *testing.T) {
	sink, err := newFileSink(t.TempDir())
	if err != nil {
		t.Fatalf("newFileSink() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	err = sink.WriteEvent(Event{Time: time.Now(), Level: slog.LevelInfo, Message: "late"})
	if !errors.Is(err, os.ErrClosed) {
		t.Fatalf("WriteEvent() after close error = %v, want os.ErrClosed", err)
	}
}

func TestLoggerCloseStopsFilePersistence(t *testing.T) {
	tmp := t.TempDir()

	logger := New(false)
	logger.SetTerminalOutputEnabled(false)
	if err := logger.EnableFilePersistence(tmp); err != nil {
		t.Fatalf("EnableFilePersistence() error = %v", err)
	}
	if got, want := logger.FilePath(), filepath.Join(tmp, MainLogFileName); got != want {
		t.Fatalf("FilePath() = %q, want %q", got, want)
	}

	logger.Debug("hidden debug line")
	logger.Info("before close")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	logger.Info("after close")

	content, err := os.ReadFile(filepath.Join(tmp, MainLogFileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "hidden debug line") {
		t.Fatalf("expected debug event to be persisted even when hidden")
	}
	if !strings.Contains(text, "before close") {
		t.Fatalf("expected pre-close event in log content")
	}
	if strings.Contains(text, "after close") {
		t.Fatalf("did not expect post-close event in log content")
	}
	if logger.FilePath() != "" {
		t.Fatalf("FilePath() after close = %q, want empty", logger.FilePath())
	}
}

func TestFormatFileLineQuotesSpacedValues(t *testing.T) {
	line := FormatFileLine(Event{
		Time:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Level:   slog.LevelWarn,
		Message: "tray unavailable",
		Fields: map[string]any{
			"error": errors.New("no system tray"),
			"ok":    "yes",
		},
	})
	want := "[2026-03-01T12:00:00Z] WARN tray unavailable error=\"no system tray\" ok=yes\n"
	if line != want {
		t.Fatalf("FormatFileLine() = %q, want %q", line, want)
	}
}

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	logger := New(false)
	logger.SetTerminalOutputEnabled(false)

	var got []string
	unsubscribe := logger.Subscribe(func(event Event) {
		got = append(got, event.Message)
	})
	logger.Debug("debug is not published when disabled")
	logger.Info("first")
	unsubscribe()
	logger.Info("second")

	if len(got) != 1 || got[0] != "first" {
		t.Fatalf("subscriber saw %v, want [first]", got)
	}
}
