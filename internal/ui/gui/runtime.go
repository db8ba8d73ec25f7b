//go:build !headless

package gui

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/backend"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/logtail"
	"wechat-desktop/internal/runctx"
	"wechat-desktop/internal/update"
)

const (
	appID            = "com.wechatdataanalysis.desktop"
	backgroundWait   = 2 * time.Second
	logQueueCapacity = 256
)

// Run builds the window front end, runs the startup sequence and blocks until
// the app quits. attach, when set, sees the shell before startup begins. A
// failed startup is returned after the user dismissed its dialog.
func Run(rootCtx context.Context, cfg app.Config, logger *logging.Logger, attach func(*app.App)) error {
	if logger == nil {
		panic("gui.Run: logger must not be nil")
	}
	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(newShellTheme())
	fyneApp.SetIcon(AppIconResource())

	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()
	c := &controller{fyneApp: fyneApp, logger: logger, ctx: ctx, cancel: cancel}

	c.win = fyneApp.NewWindow(windowTitle)
	c.win.SetMaster()
	c.win.Resize(fyne.NewSize(520, 340))

	c.shell = app.New(ctx, cfg, app.FrontEnd{
		NewTray:         c.newTray,
		CheckForUpdates: c.checkForUpdates,
		ExportLogs:      c.exportLogs,
		ExitLoop:        c.exitLoop,
		Progress:        progressBar{c: c},
		ChooseDirectory: c.chooseDirectory,
	}, logger)
	if attach != nil {
		attach(c.shell)
	}

	c.buildUI()
	c.bindLogs()
	c.shell.OnStatus(func(status string) {
		fyne.Do(func() { c.setStatus(status) })
	})
	c.win.SetCloseIntercept(func() {
		c.logger.Debug("main window close intercepted")
		c.shell.Lifecycle.RequestClose()
	})
	fyneApp.Lifecycle().SetOnStarted(func() {
		c.goBackground("startup", c.startup)
		c.goBackground("update events", func(ctx context.Context) {
			runctx.Pump(ctx, "update event pump", c.logger, c.shell.Updates.Events(), func(event update.Event) {
				fyne.Do(func() { c.handleUpdateEvent(event) })
			})
		})
	})
	fyneApp.Lifecycle().SetOnStopped(func() {
		c.logger.Debug("app lifecycle OnStopped hook triggered")
		c.shell.Quit()
	})
	go func() {
		<-ctx.Done()
		c.logger.Debug("root context done; quitting")
		c.shell.Quit()
	}()

	fyneApp.Run()
	c.cleanup()
	return c.fatalError()
}

func (c *controller) startup(ctx context.Context) {
	err := c.shell.Startup(ctx, surface{c: c})
	if err == nil {
		c.followBackendLog()
		return
	}
	if errors.Is(err, context.Canceled) {
		c.shell.Quit()
		return
	}
	c.fatalMu.Lock()
	c.fatal = err
	c.fatalMu.Unlock()
	fyne.Do(func() { c.showFatal(err) })
}

// showFatal is the blocking error box of a failed startup; dismissing it
// quits.
func (c *controller) showFatal(err error) {
	detail := err.Error()
	var fatal *app.FatalError
	if errors.As(err, &fatal) {
		detail = fatal.Detail()
	}
	message := widget.NewLabel(detail)
	message.Wrapping = fyne.TextWrapWord

	var d dialog.Dialog
	openDir := widget.NewButton("Open log folder", func() {
		if dir := c.shell.DataDir(); dir != "" {
			_ = c.fyneApp.OpenURL(&url.URL{Scheme: "file", Path: filepath.ToSlash(dir)})
		}
	})
	quit := widget.NewButton("Quit", func() {
		d.Hide()
		c.shell.Quit()
	})
	quit.Importance = widget.DangerImportance
	body := container.NewVBox(message, container.NewHBox(openDir, quit))
	d = dialog.NewCustomWithoutButtons("Startup failed", body, c.win)
	d.SetOnClosed(c.shell.Quit)
	c.win.Show()
	d.Show()
}

func (c *controller) fatalError() error {
	c.fatalMu.Lock()
	defer c.fatalMu.Unlock()
	return c.fatal
}

func (c *controller) exitLoop() {
	c.quitOnce.Do(func() {
		c.logger.Debug("calling fyne app quit")
		fyne.Do(c.fyneApp.Quit)
	})
}

func (c *controller) goBackground(name string, fn func(context.Context)) {
	c.bgWG.Go(func() {
		c.logger.Debug("background loop started", logging.Field("loop", name))
		fn(c.ctx)
		c.logger.Debug("background loop stopped", logging.Field("loop", name))
	})
}

// bindLogs mirrors the shell's own log events into the log window.
func (c *controller) bindLogs() {
	lines := make(chan string, logQueueCapacity)
	c.unsubs = append(c.unsubs, c.logger.Subscribe(func(event logging.Event) {
		runctx.SendLatest(lines, logging.FormatEventANSI(event))
	}))
	c.goBackground("gui log pump", func(ctx context.Context) {
		runctx.Pump(ctx, "GUI log pump", c.logger, lines, func(line string) {
			fyne.Do(func() { c.logs.Append(line) })
		})
	})
}

// followBackendLog tails the packaged backend's stdio log. Dev backends
// write to the terminal instead.
func (c *controller) followBackendLog() {
	if !c.shell.Packaged() || c.shell.DataDir() == "" {
		return
	}
	lines := make(chan string, logQueueCapacity)
	follower := logtail.NewFollower(logtail.Options{
		Dir:   c.shell.DataDir(),
		Files: []string{backend.StdioLogFileName},
	}, c.logger, logtail.Callbacks{
		OnLine: func(line logtail.Line) {
			runctx.SendLatest(lines, "\x1b[2m[backend]\x1b[22m "+line.Text)
		},
	})
	if err := c.shell.Go("backend log follower", follower.Run); err != nil {
		c.logger.Warn("failed to follow backend log", logging.Field("error", err))
		return
	}
	c.goBackground("backend log pump", func(ctx context.Context) {
		runctx.Pump(ctx, "backend log pump", c.logger, lines, func(line string) {
			fyne.Do(func() { c.logs.Append(line) })
		})
	})
}

func (c *controller) cleanup() {
	c.logger.Debug("gui cleanup started")
	c.cancel()
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.shell.Close()
	if ok := waitWithTimeout(&c.bgWG, backgroundWait); !ok {
		c.logger.Warn("GUI background loops did not stop within timeout")
	}
	c.logger.Debug("gui cleanup complete")
}

func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
