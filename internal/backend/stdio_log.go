package backend

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// stdioLog appends backend output to backend-stdio.log, one prefixed entry
// per chunk. A nil *stdioLog discards everything. The "backend stdio ->"
// header is written once the process has started, ahead of its first chunk.
type stdioLog struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	headerDone bool
	now        func() time.Time
}

func openStdioLog(dataDir string) (*stdioLog, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory unavailable")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, StdioLogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &stdioLog{file: f, path: path, now: time.Now}, nil
}

// started marks a successful spawn and writes the header if no output has
// done so yet.
func (l *stdioLog) started() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeHeaderLocked()
}

func (l *stdioLog) writeHeaderLocked() {
	if l.headerDone || l.file == nil {
		return
	}
	l.headerDone = true
	_, _ = l.file.WriteString(l.entry("main", []byte("backend stdio -> "+l.path)))
}

func (l *stdioLog) entry(tag string, chunk []byte) string {
	var b strings.Builder
	b.Grow(len(chunk) + 48)
	b.WriteString("[")
	b.WriteString(l.now().UTC().Format(time.RFC3339Nano))
	b.WriteString("] [")
	b.WriteString(tag)
	b.WriteString("] ")
	b.Write(chunk)
	if chunk[len(chunk)-1] != '\n' {
		b.WriteByte('\n')
	}
	return b.String()
}

func (l *stdioLog) write(tag string, chunk []byte) {
	if l == nil || len(chunk) == 0 {
		return
	}
	line := l.entry(tag, chunk)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	// Output can race ahead of started(); the header still comes first.
	l.writeHeaderLocked()
	_, _ = l.file.WriteString(line)
}

func (l *stdioLog) Linef(tag, format string, args ...any) {
	l.write(tag, []byte(fmt.Sprintf(format, args...)))
}

// Writer returns the sink for one stream. Each Write is one chunk.
func (l *stdioLog) Writer(tag string) io.Writer {
	if l == nil {
		return io.Discard
	}
	return chunkWriter{log: l, tag: tag}
}

func (l *stdioLog) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

type chunkWriter struct {
	log *stdioLog
	tag string
}

func (w chunkWriter) Write(p []byte) (int, error) {
	w.log.write(w.tag, p)
	return len(p), nil
}
