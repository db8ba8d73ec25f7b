package logtail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"wechat-desktop/internal/logging"
)

const (
	defaultRescanPeriod = 2 * time.Second
	defaultBacklog      = 200
)

func NewFollower(opts Options, logger *logging.Logger, callbacks Callbacks) *Follower {
	if logger == nil {
		panic("logtail.NewFollower: logger must not be nil")
	}
	if opts.RescanPeriod <= 0 {
		opts.RescanPeriod = defaultRescanPeriod
	}
	if opts.Backlog < 0 {
		opts.Backlog = 0
	} else if opts.Backlog == 0 {
		opts.Backlog = defaultBacklog
	}
	return &Follower{
		opts:      opts,
		logger:    logger,
		callbacks: callbacks,
		tailers:   map[string]*Tailer{},
	}
}

// Run follows the configured files until ctx ends. Files that do not exist
// yet are picked up when they appear.
func (f *Follower) Run(ctx context.Context) error {
	dir := strings.TrimSpace(f.opts.Dir)
	if dir == "" {
		return errors.New("logtail: missing log directory")
	}
	if len(f.opts.Files) == 0 {
		return errors.New("logtail: no files to follow")
	}
	f.logger.Debug("starting log follower", logging.Field("dir", dir), logging.Field("files", strings.Join(f.opts.Files, ",")))

	f.syncTailers()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch log directory %s: %w", dir, err)
	}

	rescan := time.NewTicker(f.opts.RescanPeriod)
	defer rescan.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Debug("stopping log follower: context canceled")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			f.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.handleError(err)
		case <-rescan.C:
			f.syncTailers()
			for _, tailer := range f.tailers {
				f.read(tailer)
			}
		}
	}
}

func (f *Follower) wanted(path string) bool {
	base := filepath.Base(path)
	for _, name := range f.opts.Files {
		if strings.EqualFold(name, base) {
			return true
		}
	}
	return false
}

// syncTailers starts tailing wanted files that exist and forgets removed ones.
func (f *Follower) syncTailers() {
	for _, name := range f.opts.Files {
		path := filepath.Clean(filepath.Join(f.opts.Dir, name))
		_, tracked := f.tailers[path]
		info, err := os.Stat(path)
		exists := err == nil && !info.IsDir()
		switch {
		case exists && !tracked:
			f.track(path)
		case !exists && tracked:
			f.logger.Debug("stopped following removed log", logging.Field("path", path))
			delete(f.tailers, path)
		}
	}
}

func (f *Follower) track(path string) {
	tailer := &Tailer{Path: path}
	lines, err := tailer.Prime(f.opts.Backlog)
	if err != nil {
		f.logger.Debug("failed to prime log tailer", logging.Field("path", path), logging.Field("error", err))
		return
	}
	f.tailers[path] = tailer
	f.logger.Debug("following log file", logging.Field("path", path), logging.Field("backlog", len(lines)))
	f.emit(tailer, lines)
}

func (f *Follower) handleEvent(event fsnotify.Event) {
	if !f.wanted(event.Name) {
		return
	}
	path := filepath.Clean(event.Name)
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, err := os.Stat(path); err != nil {
			delete(f.tailers, path)
			return
		}
	}
	tailer, ok := f.tailers[path]
	if !ok {
		f.syncTailers()
		tailer, ok = f.tailers[path]
		if !ok {
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		f.read(tailer)
	}
}

func (f *Follower) handleError(err error) {
	if err == nil {
		return
	}
	f.logger.Warn("log watcher error", logging.Field("error", err))
	if f.callbacks.OnError != nil {
		f.callbacks.OnError(err)
	}
}

func (f *Follower) read(tailer *Tailer) {
	lines, err := tailer.ReadNewLines()
	if err != nil {
		f.logger.Debug("failed to read new lines", logging.Field("path", tailer.Path), logging.Field("error", err))
		return
	}
	f.emit(tailer, lines)
}

func (f *Follower) emit(tailer *Tailer, lines []string) {
	if f.callbacks.OnLine == nil {
		return
	}
	source := filepath.Base(tailer.Path)
	for _, text := range lines {
		if strings.TrimSpace(text) == "" {
			continue
		}
		f.callbacks.OnLine(Line{Source: source, Path: tailer.Path, Text: text})
	}
}
