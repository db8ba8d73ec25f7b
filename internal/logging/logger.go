package logging

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Logger writes supervisor events to stderr, to desktop-main.log once a data
// directory is known, and to any subscribed log views.
type Logger struct {
	debugEnabled atomic.Bool
	terminalOut  atomic.Bool
	pretty       bool

	mu          sync.RWMutex
	fileSink    *fileSink
	nextID      int
	subscribers map[int]func(Event)
}

type Event struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Fields  map[string]any
}

func New(debug bool) *Logger {
	logger := &Logger{
		pretty:      shouldPrettyPrint(),
		subscribers: map[int]func(Event){},
	}
	logger.debugEnabled.Store(debug)
	logger.terminalOut.Store(true)
	return logger
}

func Field(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Debug always reaches the log file; stderr and subscribers only see it
// with debug enabled.
func (l *Logger) Debug(msg string, fields ...slog.Attr) {
	if l == nil {
		return
	}
	l.log(slog.LevelDebug, msg, fields, l.debugEnabled.Load())
}

func (l *Logger) Info(msg string, fields ...slog.Attr) {
	if l == nil {
		return
	}
	l.log(slog.LevelInfo, msg, fields, true)
}

func (l *Logger) Warn(msg string, fields ...slog.Attr) {
	if l == nil {
		return
	}
	l.log(slog.LevelWarn, msg, fields, true)
}

func (l *Logger) Error(msg string, fields ...slog.Attr) {
	if l == nil {
		return
	}
	l.log(slog.LevelError, msg, fields, true)
}

func (l *Logger) SetDebugEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.debugEnabled.Store(enabled)
}

// SetTerminalOutputEnabled mutes stderr while a full-screen terminal UI owns
// the display.
func (l *Logger) SetTerminalOutputEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.terminalOut.Store(enabled)
}

// EnableFilePersistence appends every event, including hidden debug lines,
// to desktop-main.log inside dir.
func (l *Logger) EnableFilePersistence(dir string) error {
	if l == nil {
		return nil
	}
	sink, err := newFileSink(dir)
	if err != nil {
		return err
	}
	l.mu.Lock()
	old := l.fileSink
	l.fileSink = sink
	l.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// FilePath reports the active log file, or "" when file logging is off.
func (l *Logger) FilePath() string {
	if l == nil {
		return ""
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fileSink.Path()
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	sink := l.fileSink
	l.fileSink = nil
	l.mu.Unlock()
	if sink == nil {
		return nil
	}
	return sink.Close()
}

// Subscribe registers fn for every visible event and returns its unsubscribe
// func. fn runs on the logging goroutine and must not block.
func (l *Logger) Subscribe(fn func(Event)) func() {
	if l == nil {
		panic("logging.Logger.Subscribe: logger must not be nil")
	}
	if fn == nil {
		panic("logging.Logger.Subscribe: callback must not be nil")
	}
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subscribers[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subscribers, id)
		l.mu.Unlock()
	}
}

func (l *Logger) log(level slog.Level, msg string, attrs []slog.Attr, visible bool) {
	event := Event{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  attrsToMap(attrs),
	}

	l.mu.RLock()
	sink := l.fileSink
	var callbacks []func(Event)
	if visible && len(l.subscribers) > 0 {
		callbacks = make([]func(Event), 0, len(l.subscribers))
		for _, cb := range l.subscribers {
			callbacks = append(callbacks, cb)
		}
	}
	l.mu.RUnlock()

	if sink != nil {
		// A failed write must not take the supervisor down.
		_ = sink.WriteEvent(event)
	}
	if !visible {
		return
	}
	if l.terminalOut.Load() {
		l.emit(event)
	}
	for _, cb := range callbacks {
		cb(event)
	}
}

func (l *Logger) emit(event Event) {
	line := FormatEventLine(event)
	if l.pretty {
		line = FormatEventANSI(event)
	}
	_, _ = os.Stderr.WriteString(line)
}
