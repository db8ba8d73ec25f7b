//go:build !headless

package gui

import (
	"errors"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"wechat-desktop/internal/app"
)

var errNoTray = errors.New("system tray not supported by this desktop")

// systemTray is the fyne tray icon. fyne cannot remove an icon once shown, so
// Destroy only deactivates it: notifications stop and the menu shrinks to
// the show and quit entries.
type systemTray struct {
	fyneApp fyne.App
	desk    desktop.App
	menu    app.TrayMenu

	mu     sync.Mutex
	active bool
}

func (c *controller) newTray(menu app.TrayMenu) (app.Tray, error) {
	desk, ok := c.fyneApp.(desktop.App)
	if !ok {
		return nil, errNoTray
	}
	t := &systemTray{fyneApp: c.fyneApp, desk: desk, menu: menu, active: true}
	fyne.Do(func() {
		desk.SetSystemTrayIcon(AppIconResource())
		t.refreshMenu(true)
	})
	return t, nil
}

func (t *systemTray) refreshMenu(active bool) {
	show := fyne.NewMenuItem("Show", t.menu.Show)
	quit := fyne.NewMenuItem("Quit", t.menu.Quit)
	quit.IsQuit = true
	items := []*fyne.MenuItem{show}
	if active && t.menu.CheckForUpdates != nil {
		items = append(items, fyne.NewMenuItem("Check for updates...", t.menu.CheckForUpdates))
	}
	if active && t.menu.ExportLogs != nil {
		items = append(items, fyne.NewMenuItem("Export logs...", t.menu.ExportLogs))
	}
	items = append(items, fyne.NewMenuItemSeparator(), quit)
	t.desk.SetSystemTrayMenu(fyne.NewMenu(windowTitle, items...))
}

func (t *systemTray) Notify(title, body string) {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()
	if !active {
		return
	}
	t.fyneApp.SendNotification(fyne.NewNotification(title, body))
}

func (t *systemTray) Destroy() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
	fyne.Do(func() {
		t.refreshMenu(false)
	})
}
