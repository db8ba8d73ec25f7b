//go:build !headless

package gui

import (
	"fyne.io/fyne/v2"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/logging"
)

// mainWindow adapts the fyne window to app.Window. Calls may come from any
// goroutine.
type mainWindow struct {
	win    fyne.Window
	logger *logging.Logger
}

var _ app.Window = (*mainWindow)(nil)

func (w *mainWindow) Show() {
	fyne.Do(w.win.Show)
}

func (w *mainWindow) Hide() {
	fyne.Do(w.win.Hide)
}

func (w *mainWindow) Focus() {
	fyne.Do(w.win.RequestFocus)
}

// SetSkipTaskbar has no fyne equivalent; a hidden fyne window already leaves
// the taskbar.
func (w *mainWindow) SetSkipTaskbar(skip bool) {
	w.logger.Debug("skip taskbar requested", logging.Field("skip", skip))
}

// surface is what app.Startup drives once the backend is healthy.
type surface struct {
	c *controller
}

func (s surface) OpenWindow() (app.Window, error) {
	fyne.DoAndWait(func() {
		s.c.win.Show()
		s.c.win.RequestFocus()
	})
	return &mainWindow{win: s.c.win, logger: s.c.logger}, nil
}

func (s surface) Present(url string) error {
	return s.c.presentURL(url)
}
