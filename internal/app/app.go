// Package app is the shell's context object: it owns the backend supervisor,
// settings, update controller and window lifecycle, and runs the startup
// sequence shared by the window and terminal front ends.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wechat-desktop/internal/backend"
	"wechat-desktop/internal/config"
	"wechat-desktop/internal/health"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/runstatus"
	"wechat-desktop/internal/runtime"
	"wechat-desktop/internal/update"
)

const (
	DefaultLoadTimeout    = 60 * time.Second
	DefaultLoadInterval   = 500 * time.Millisecond
	DefaultUpdateDelay    = 3 * time.Second
	DefaultUpdateInterval = 6 * time.Hour

	updateChecksTask = "update checks"
	shutdownWait     = 2 * time.Second
)

type Config struct {
	Options  config.Options
	Version  string
	Packaged bool
	// DataDir is the resolved data directory; empty disables files.
	DataDir string
	ExeDir  string

	HTTPClient *http.Client
	// Feed overrides the feed described by app-update.yml.
	Feed update.Feed
	// BackendCommand overrides the spawned backend program.
	BackendCommand []string
	BackendEnv     map[string]string

	HealthTimeout  time.Duration
	LoadTimeout    time.Duration
	LoadInterval   time.Duration
	UpdateDelay    time.Duration
	UpdateInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = health.DefaultStartupTimeout
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.LoadInterval <= 0 {
		c.LoadInterval = DefaultLoadInterval
	}
	if c.UpdateDelay <= 0 {
		c.UpdateDelay = DefaultUpdateDelay
	}
	if c.UpdateInterval == 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
}

// FrontEnd is what a UI supplies to the shell.
type FrontEnd struct {
	// NewTray is nil for front ends without a tray.
	NewTray         TrayFactory
	CheckForUpdates func()
	ExportLogs      func()
	// ExitLoop makes the UI loop return.
	ExitLoop        func()
	Progress        update.ProgressSink
	ChooseDirectory func(title string, done func(DirectoryChoice))
}

type DirectoryChoice struct {
	Canceled bool
	Paths    []string
}

type App struct {
	cfg      Config
	logger   *logging.Logger
	frontEnd FrontEnd

	Settings  *config.SettingsStore
	Backend   *backend.Supervisor
	Health    *health.Poller
	Updates   *update.Controller
	Lifecycle *Lifecycle

	tasks *runtime.Controller

	mu        sync.Mutex
	status    string
	onStatus  []func(string)
	startURL  string
	closeOnce sync.Once
}

func New(ctx context.Context, cfg Config, frontEnd FrontEnd, logger *logging.Logger) *App {
	if logger == nil {
		panic("app.New: logger must not be nil")
	}
	cfg.applyDefaults()
	opts := cfg.Options

	a := &App{
		cfg:      cfg,
		logger:   logger,
		frontEnd: frontEnd,
		Settings: config.NewSettingsStore(cfg.DataDir, logger),
		Health:   health.NewPoller(health.URLFor(opts.Host, opts.Port), cfg.HTTPClient, logger),
		tasks:    runtime.NewController(ctx, logger),
		startURL: opts.ResolveStartURL(cfg.Packaged),
		status:   runstatus.Starting,
	}

	a.Backend = backend.NewSupervisor(a.backendConfig(), logger)
	a.Backend.OnExit(func(h *backend.Handle) {
		code, signal, _ := h.ExitStatus()
		if a.Lifecycle.Quitting() {
			return
		}
		a.logger.Warn("backend exited while the shell is running", logging.Field("code", code), logging.Field("signal", signal))
		a.setStatus(runstatus.BackendExited)
	})

	a.Lifecycle = NewLifecycle(LifecycleOptions{
		Packaged:        cfg.Packaged,
		Settings:        a.Settings,
		NewTray:         frontEnd.NewTray,
		CheckForUpdates: frontEnd.CheckForUpdates,
		ExportLogs:      frontEnd.ExportLogs,
		StopBackend: func() {
			a.setStatus(runstatus.Stopping)
			a.tasks.Stop()
			a.Backend.Stop()
		},
		ExitLoop: frontEnd.ExitLoop,
		OnStateChange: func(state WindowState) {
			switch state {
			case WindowHiddenToTray:
				a.setStatus(runstatus.HiddenToTray)
			case WindowShown:
				a.restoreStatus(runstatus.HiddenToTray)
			}
		},
	}, logger)

	a.Updates = update.NewController(update.Options{
		Enabled:        opts.AutoUpdateEnabled(cfg.Packaged),
		CurrentVersion: cfg.Version,
		Feed:           a.loadFeed(),
		HTTPClient:     cfg.HTTPClient,
		CacheDir:       a.updateCacheDir(),
		Ignored:        a.Settings,
		Quit:           a.Quit,
	}, logger)
	a.Updates.Attach(frontEnd.Progress, a.Lifecycle)
	return a
}

func (a *App) backendConfig() backend.Config {
	opts := a.cfg.Options
	extra := map[string]string{}
	if env, err := config.LoadBackendEnv(a.cfg.DataDir); err != nil {
		a.logger.Warn("failed to read backend env file", logging.Field("error", err))
	} else {
		for k, v := range env {
			extra[k] = v
		}
	}
	for k, v := range a.cfg.BackendEnv {
		extra[k] = v
	}
	return backend.Config{
		Packaged:     a.cfg.Packaged,
		Host:         opts.Host,
		Port:         opts.Port,
		DataDir:      a.cfg.DataDir,
		UIDir:        opts.UIDir,
		ResourcesDir: opts.ResolveResourcesDir(),
		RepoRoot:     opts.ResolveRepoRoot(),
		ExtraEnv:     extra,
		Command:      a.cfg.BackendCommand,
	}
}

func (a *App) loadFeed() update.Feed {
	if a.cfg.Feed != nil {
		return a.cfg.Feed
	}
	if !a.cfg.Options.AutoUpdateEnabled(a.cfg.Packaged) {
		return nil
	}
	path := filepath.Join(a.cfg.Options.ResolveResourcesDir(), update.FeedConfigFileName)
	feedCfg, err := update.LoadFeedConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Info("auto-update disabled: feed config not found", logging.Field("path", path))
		} else {
			a.logger.Warn("auto-update disabled: feed config unreadable", logging.Field("path", path), logging.Field("error", err))
		}
		return nil
	}
	feed, err := update.NewFeed(feedCfg, a.cfg.HTTPClient, a.logger)
	if err != nil {
		a.logger.Warn("auto-update disabled: invalid feed config", logging.Field("path", path), logging.Field("error", err))
		return nil
	}
	return feed
}

func (a *App) updateCacheDir() string {
	if a.cfg.DataDir != "" {
		return filepath.Join(a.cfg.DataDir, "updates")
	}
	return filepath.Join(os.TempDir(), config.AppName+"-updates")
}

func (a *App) Logger() *logging.Logger {
	return a.logger
}

func (a *App) DataDir() string {
	return a.cfg.DataDir
}

func (a *App) Packaged() bool {
	return a.cfg.Packaged
}

func (a *App) StartURL() string {
	return a.startURL
}

// LogFiles lists the log files written into the data directory.
func (a *App) LogFiles() []string {
	if a.cfg.DataDir == "" {
		return nil
	}
	return []string{
		filepath.Join(a.cfg.DataDir, logging.MainLogFileName),
		filepath.Join(a.cfg.DataDir, backend.StdioLogFileName),
	}
}

func (a *App) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// OnStatus registers fn for status changes. fn runs on the caller's
// goroutine and must hand off to its UI thread itself.
func (a *App) OnStatus(fn func(string)) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.onStatus = append(a.onStatus, fn)
	a.mu.Unlock()
}

func (a *App) setStatus(status string) {
	a.mu.Lock()
	if a.status == status {
		a.mu.Unlock()
		return
	}
	a.status = status
	hooks := append([]func(string){}, a.onStatus...)
	a.mu.Unlock()
	a.logger.Debug("shell status changed", logging.Field("status", status))
	for _, fn := range hooks {
		fn(status)
	}
}

// restoreStatus returns to Ready when the current status is one of the
// transient ones given.
func (a *App) restoreStatus(transient ...string) {
	a.mu.Lock()
	current := a.status
	a.mu.Unlock()
	for _, status := range transient {
		if current == status {
			a.setStatus(runstatus.Ready)
			return
		}
	}
}

// Go runs a named background task that stops with the app.
func (a *App) Go(name string, task runtime.Task) error {
	return a.tasks.Start(name, task, nil)
}

// Focus answers a second instance's focus request.
func (a *App) Focus() {
	a.logger.Info("focus requested by another instance")
	a.Lifecycle.Show()
}

// Quit ends the app from any path: tray, window, installer or signal.
func (a *App) Quit() {
	a.Lifecycle.Quit()
}

// Close tears the app down after the UI loop has returned.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.Lifecycle.Quit()
		if ok := a.tasks.StopAndWait(shutdownWait); !ok {
			a.logger.Warn("background tasks did not stop within timeout")
		}
		a.Backend.Stop()
	})
}
