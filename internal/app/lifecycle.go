package app

import (
	"sync"

	"wechat-desktop/internal/config"
	"wechat-desktop/internal/logging"
)

type WindowState int

const (
	WindowPending WindowState = iota
	WindowShown
	WindowHiddenToTray
	WindowClosed
)

func (s WindowState) String() string {
	switch s {
	case WindowPending:
		return "pending"
	case WindowShown:
		return "shown"
	case WindowHiddenToTray:
		return "hidden to tray"
	case WindowClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Window is the main window as seen by the lifecycle. Implementations marshal
// onto their UI thread themselves.
type Window interface {
	Show()
	Hide()
	// Focus unminimizes and raises the window.
	Focus()
	SetSkipTaskbar(skip bool)
}

type Tray interface {
	Notify(title, body string)
	Destroy()
}

// TrayMenu holds the actions every tray menu offers.
type TrayMenu struct {
	Show            func()
	CheckForUpdates func()
	ExportLogs      func()
	Quit            func()
}

type TrayFactory func(menu TrayMenu) (Tray, error)

type CloseBehaviorStore interface {
	CloseBehavior() config.CloseBehavior
	SetCloseBehavior(raw string) config.CloseBehavior
}

type LifecycleOptions struct {
	Packaged bool
	Settings CloseBehaviorStore
	// NewTray is nil when the front end has no tray surface.
	NewTray         TrayFactory
	CheckForUpdates func()
	ExportLogs      func()
	// StopBackend runs on every path that ends the window.
	StopBackend func()
	// ExitLoop asks the UI loop to return.
	ExitLoop func()
	// OnStateChange runs after the window moves between shown and hidden.
	OnStateChange func(WindowState)
}

// Lifecycle decides what closing the window means and keeps the tray icon in
// step with the close-behavior setting.
type Lifecycle struct {
	opts   LifecycleOptions
	logger *logging.Logger

	mu       sync.Mutex
	window   Window
	tray     Tray
	creating bool
	state    WindowState
	quitting bool
	quitOnce sync.Once
}

func NewLifecycle(opts LifecycleOptions, logger *logging.Logger) *Lifecycle {
	if logger == nil {
		panic("app.NewLifecycle: logger must not be nil")
	}
	if opts.Settings == nil {
		panic("app.NewLifecycle: settings must not be nil")
	}
	return &Lifecycle{opts: opts, logger: logger}
}

// AttachWindow records the freshly shown window and creates the tray if the
// close behavior asks for one.
func (l *Lifecycle) AttachWindow(w Window) {
	l.mu.Lock()
	l.window = w
	l.state = WindowShown
	l.mu.Unlock()
	l.SyncTray()
}

func (l *Lifecycle) State() WindowState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Quitting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quitting
}

func (l *Lifecycle) HasTray() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tray != nil
}

func (l *Lifecycle) CloseBehavior() config.CloseBehavior {
	return l.opts.Settings.CloseBehavior()
}

// SetCloseBehavior persists the preference and creates or destroys the tray
// to match it.
func (l *Lifecycle) SetCloseBehavior(raw string) config.CloseBehavior {
	next := l.opts.Settings.SetCloseBehavior(raw)
	l.logger.Info("close behavior changed", logging.Field("behavior", string(next)))
	l.SyncTray()
	return next
}

// SyncTray creates the tray for the tray behavior in packaged builds and
// destroys it otherwise. Creation failures disable the tray behavior.
func (l *Lifecycle) SyncTray() {
	want := l.opts.Packaged && l.opts.NewTray != nil && l.CloseBehavior() == config.CloseToTray

	l.mu.Lock()
	if l.quitting || l.state == WindowClosed {
		want = false
	}
	if l.creating {
		l.mu.Unlock()
		return
	}
	current := l.tray
	create := want && current == nil
	if create {
		l.creating = true
	}
	l.mu.Unlock()

	switch {
	case create:
		tray, err := l.opts.NewTray(l.trayMenu())
		l.mu.Lock()
		l.creating = false
		if err == nil {
			l.tray = tray
		}
		l.mu.Unlock()
		if err != nil {
			l.logger.Warn("failed to create tray; tray behavior disabled", logging.Field("error", err))
			return
		}
		l.logger.Debug("tray created")
		// The setting may have changed while the tray was being built.
		if l.CloseBehavior() != config.CloseToTray {
			l.SyncTray()
		}
	case !want && current != nil:
		l.destroyTray()
	}
}

func (l *Lifecycle) trayMenu() TrayMenu {
	menu := TrayMenu{
		Show:            l.Show,
		CheckForUpdates: l.opts.CheckForUpdates,
		Quit:            l.Quit,
	}
	if l.opts.ExportLogs != nil {
		// The folder dialog needs a visible parent window.
		menu.ExportLogs = func() {
			l.Show()
			l.opts.ExportLogs()
		}
	}
	return menu
}

func (l *Lifecycle) destroyTray() {
	l.mu.Lock()
	tray := l.tray
	l.tray = nil
	l.mu.Unlock()
	if tray != nil {
		tray.Destroy()
		l.logger.Debug("tray destroyed")
	}
}

// RequestClose handles a user close request. It returns true when the window
// should really close; in that case the backend is already being stopped.
func (l *Lifecycle) RequestClose() bool {
	behavior := l.CloseBehavior()

	l.mu.Lock()
	hide := behavior == config.CloseToTray && l.opts.Packaged && l.tray != nil && !l.quitting
	window := l.window
	tray := l.tray
	if hide {
		l.state = WindowHiddenToTray
	}
	l.mu.Unlock()

	if !hide {
		l.logger.Info("window close allowed", logging.Field("behavior", string(behavior)))
		l.WindowClosed()
		return true
	}

	l.logger.Info("window hidden to tray")
	l.stateChanged(WindowHiddenToTray)
	if window != nil {
		window.Hide()
		window.SetSkipTaskbar(true)
	}
	tray.Notify("WeChatDataAnalysis", "Minimized to the tray. The backend keeps running.")
	return false
}

// WindowClosed marks the window gone and shuts the app down.
func (l *Lifecycle) WindowClosed() {
	l.mu.Lock()
	l.state = WindowClosed
	l.mu.Unlock()
	l.Quit()
}

// Show brings the window back from the tray or from another instance's
// focus request.
func (l *Lifecycle) Show() {
	l.mu.Lock()
	window := l.window
	if window != nil && l.state != WindowClosed {
		l.state = WindowShown
	} else {
		window = nil
	}
	l.mu.Unlock()
	if window == nil {
		return
	}
	window.SetSkipTaskbar(false)
	window.Show()
	window.Focus()
	l.stateChanged(WindowShown)
}

func (l *Lifecycle) stateChanged(state WindowState) {
	if l.opts.OnStateChange != nil {
		l.opts.OnStateChange(state)
	}
}

// Notify shows a tray notification when a tray exists.
func (l *Lifecycle) Notify(title, body string) {
	l.mu.Lock()
	tray := l.tray
	l.mu.Unlock()
	if tray == nil {
		l.logger.Debug("notification skipped: no tray", logging.Field("title", title))
		return
	}
	tray.Notify(title, body)
}

// Quit sets the quitting flag, removes the tray, stops the backend and exits
// the UI loop. Only the first call does anything.
func (l *Lifecycle) Quit() {
	l.quitOnce.Do(func() {
		l.mu.Lock()
		l.quitting = true
		l.mu.Unlock()
		l.logger.Info("quit requested")

		l.destroyTray()
		if l.opts.StopBackend != nil {
			l.opts.StopBackend()
		}
		if l.opts.ExitLoop != nil {
			l.opts.ExitLoop()
		}
	})
}
