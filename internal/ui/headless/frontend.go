package headless

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/runctx"
)

// terminalWindow stands in for the main window. The terminal is always
// visible, so only focus requests are worth logging.
type terminalWindow struct {
	logger *logging.Logger
}

var _ app.Window = terminalWindow{}

func (terminalWindow) Show() {}

func (terminalWindow) Hide() {}

func (w terminalWindow) Focus() {
	w.logger.Info("focus requested; the terminal UI is already in front")
}

func (terminalWindow) SetSkipTaskbar(bool) {}

// surface records the start URL instead of loading it; the user opens it in
// a browser.
type surface struct {
	m *headlessModel
}

func (s surface) OpenWindow() (app.Window, error) {
	return terminalWindow{logger: s.m.logger}, nil
}

func (s surface) Present(url string) error {
	s.m.logger.Info("UI available", logging.Field("url", url))
	s.m.send(presentMsg{url: url})
	return nil
}

type progressSink struct {
	m *headlessModel
}

func (p progressSink) SetProgress(fraction float64) {
	runctx.SendLatest(p.m.progressCh, fraction)
}

// goBackground runs fn off the update loop and delivers its result.
func (m *headlessModel) goBackground(name string, fn func() tea.Msg) {
	m.bgWG.Go(func() {
		m.logger.Debug("terminal command started", logging.Field("command", name))
		msg := fn()
		m.logger.Debug("terminal command finished", logging.Field("command", name))
		if msg != nil && m.program != nil {
			m.program.Send(msg)
		}
	})
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
