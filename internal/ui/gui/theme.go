//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// shellTheme forces the dark variant so the log grid's black background
// matches the rest of the window.
type shellTheme struct {
	base fyne.Theme
}

func newShellTheme() fyne.Theme {
	return &shellTheme{base: theme.DefaultTheme()}
}

func (t *shellTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return t.base.Color(name, theme.VariantDark)
}

func (t *shellTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *shellTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *shellTheme) Size(name fyne.ThemeSizeName) float32 {
	return t.base.Size(name)
}
