package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MainLogFileName is the supervisor log kept in the data directory.
const MainLogFileName = "desktop-main.log"

type fileSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

func newFileSink(dir string) (*fileSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("log directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	sink := &fileSink{path: filepath.Join(dir, MainLogFileName)}
	if err := sink.openLocked(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *fileSink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *fileSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileSink) WriteEvent(event Event) error {
	if s == nil {
		return nil
	}
	line := FormatFileLine(event)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	if s.file == nil {
		if err := s.openLocked(); err != nil {
			return err
		}
	}
	_, err := s.file.WriteString(line)
	return err
}

// The file is never truncated or rotated; the user collects it for support.
func (s *fileSink) openLocked() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

// FormatFileLine renders an event as a single timestamped line for the
// on-disk log: "[<RFC3339Nano>] LEVEL message key=value ...".
func FormatFileLine(event Event) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(event.Time.UTC().Format(time.RFC3339Nano))
	b.WriteString("] ")
	b.WriteString(levelName(event.Level))
	b.WriteString(" ")
	b.WriteString(strings.ReplaceAll(event.Message, "\n", " "))
	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for key := range event.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			b.WriteString(" ")
			b.WriteString(key)
			b.WriteString("=")
			b.WriteString(compactFieldValue(event.Fields[key]))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func compactFieldValue(value any) string {
	value = normalizeLogFieldValue(value)
	switch v := value.(type) {
	case nil:
		return "<nil>"
	case string:
		if v == "" || strings.ContainsAny(v, " \t\r\n\"=") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case map[string]any, []any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err == nil {
			return strings.TrimSpace(buf.String())
		}
	}
	return fmt.Sprintf("%v", value)
}

func normalizeLogFieldValue(value any) any {
	if value == nil {
		return nil
	}
	if errValue, ok := value.(error); ok {
		return errValue.Error()
	}
	if text, ok := value.(interface{ String() string }); ok {
		if _, isLevel := value.(slog.Level); !isLevel {
			return text.String()
		}
	}
	return value
}
