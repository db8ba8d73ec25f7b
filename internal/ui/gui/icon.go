//go:build !headless

package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// AppIconResource is the window and tray icon.
func AppIconResource() fyne.Resource {
	return theme.ComputerIcon()
}
