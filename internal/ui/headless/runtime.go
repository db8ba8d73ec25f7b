// Package headless is the terminal front end: a Bubble Tea program that
// drives the same shell as the window front end. It has no tray, so closing
// always exits.
package headless

import (
	"context"
	"errors"
	"os"
	"os/exec"
	goruntime "runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/backend"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/logtail"
	"wechat-desktop/internal/runctx"
	headlessview "wechat-desktop/internal/ui/headless/view"
)

const (
	logChannelBufferSize    = 512
	statusChannelBufferSize = 16
	progressBufferSize      = 8
	updateTickInterval      = 120 * time.Millisecond
	backgroundWait          = 2 * time.Second
)

// Run starts the terminal front end and blocks until the app quits. attach,
// when set, sees the shell before startup begins. A failed startup is
// returned after the user dismissed its error.
func Run(rootCtx context.Context, cfg app.Config, logger *logging.Logger, attach func(*app.App)) error {
	if logger == nil {
		panic("headless.Run: logger must not be nil")
	}
	defer forceDisableMouseTracking()

	logger.SetTerminalOutputEnabled(false)
	defer logger.SetTerminalOutputEnabled(true)

	m := newHeadlessModel(rootCtx, cfg, logger)
	if attach != nil {
		attach(m.shell)
	}

	zone.NewGlobal()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(m.rootCtx))
	m.program = program
	go func() {
		<-m.rootCtx.Done()
		m.logger.Debug("root context done; quitting")
		m.shell.Quit()
	}()

	_, runErr := program.Run()
	m.cleanup()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return m.fatal
}

func forceDisableMouseTracking() {
	_, _ = os.Stdout.WriteString("\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l\x1b[?1015l")
}

func newHeadlessModel(rootCtx context.Context, cfg app.Config, logger *logging.Logger) *headlessModel {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	runCtx, runCancel := context.WithCancel(rootCtx)

	m := &headlessModel{
		modelDeps: modelDeps{
			logger:     logger,
			rootCtx:    runCtx,
			rootCancel: runCancel,
			openURL:    openExternalURL,
		},
		modelChannels: modelChannels{
			logCh:      make(chan string, logChannelBufferSize),
			statusCh:   make(chan string, statusChannelBufferSize),
			progressCh: make(chan float64, progressBufferSize),
		},
		ui: headlessview.NewState(),
	}
	m.deliver = m.sendToProgram

	m.shell = app.New(runCtx, cfg, app.FrontEnd{
		CheckForUpdates: func() { m.send(checkRequestMsg{}) },
		ExitLoop:        m.exitLoop,
		Progress:        progressSink{m: m},
		ChooseDirectory: func(title string, done func(app.DirectoryChoice)) {
			m.send(chooseDirMsg{title: title, done: done})
		},
	}, logger)
	m.status = m.shell.Status()
	m.shell.OnStatus(func(status string) {
		runctx.SendLatest(m.statusCh, status)
	})
	m.unsubs = append(m.unsubs, logger.Subscribe(func(event logging.Event) {
		runctx.SendLatest(m.logCh, logging.FormatEventANSI(event))
	}))
	return m
}

// send delivers msg without blocking the caller, which may be the update
// loop itself.
func (m *headlessModel) send(msg tea.Msg) {
	m.deliver(msg)
}

func (m *headlessModel) sendToProgram(msg tea.Msg) {
	if m.program == nil {
		return
	}
	go m.program.Send(msg)
}

func (m *headlessModel) exitLoop() {
	m.exitOnce.Do(func() {
		m.logger.Debug("terminal loop exit requested")
		m.send(beginQuitMsg{})
	})
}

func (m *headlessModel) Init() tea.Cmd {
	return tea.Batch(
		waitForString(m.logCh, func(s string) tea.Msg { return logMsg(s) }),
		waitForString(m.statusCh, func(s string) tea.Msg { return statusMsg(s) }),
		waitForProgress(m.progressCh),
		waitForUpdateEvent(m.shell),
		tickCmd(),
		m.startupCmd(),
	)
}

func (m *headlessModel) startupCmd() tea.Cmd {
	ctx := m.rootCtx
	return func() tea.Msg {
		return startupDoneMsg{err: m.shell.Startup(ctx, surface{m: m})}
	}
}

func waitForString(ch <-chan string, wrap func(string) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		value, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(value)
	}
}

func waitForProgress(ch <-chan float64) tea.Cmd {
	return func() tea.Msg {
		fraction, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(fraction)
	}
}

func waitForUpdateEvent(shell *app.App) tea.Cmd {
	events := shell.Updates.Events()
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return updateEventMsg(event)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(updateTickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// followBackendLog tails the packaged backend's stdio log into the log pane.
func (m *headlessModel) followBackendLog() {
	if !m.shell.Packaged() || m.shell.DataDir() == "" {
		return
	}
	follower := logtail.NewFollower(logtail.Options{
		Dir:   m.shell.DataDir(),
		Files: []string{backend.StdioLogFileName},
	}, m.logger, logtail.Callbacks{
		OnLine: func(line logtail.Line) {
			runctx.SendLatest(m.logCh, "\x1b[2m[backend]\x1b[22m "+line.Text)
		},
	})
	if err := m.shell.Go("backend log follower", follower.Run); err != nil {
		m.logger.Warn("failed to follow backend log", logging.Field("error", err))
	}
}

func (m *headlessModel) cleanup() {
	m.cleanupOnce.Do(func() {
		m.logger.Debug("headless cleanup started")
		if m.rootCancel != nil {
			m.rootCancel()
		}
		for _, unsub := range m.unsubs {
			unsub()
		}
		m.shell.Close()
		if ok := waitWithTimeout(&m.bgWG, backgroundWait); !ok {
			m.logger.Warn("terminal background commands did not stop within timeout")
		}
		m.logger.Debug("headless cleanup complete")
	})
}

func openExternalURL(rawURL string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}
