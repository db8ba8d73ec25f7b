//go:build !headless

package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"wechat-desktop/internal/config"
	"wechat-desktop/internal/ui/gui"
)

// showAlreadyRunningDialog is the fallback when the running copy did not
// answer the focus request.
func showAlreadyRunningDialog() {
	uiApp := app.New()
	uiApp.SetIcon(gui.AppIconResource())
	win := uiApp.NewWindow(config.AppName)
	win.SetFixedSize(true)
	win.Resize(fyne.NewSize(440, 150))

	message := widget.NewLabel(config.AppName + " is already running.\nLook for it in the system tray.")
	message.Alignment = fyne.TextAlignCenter
	message.Wrapping = fyne.TextWrapWord
	ok := widget.NewButton("OK", uiApp.Quit)
	ok.Importance = widget.HighImportance

	buttonBar := container.NewHBox(layout.NewSpacer(), container.NewGridWrap(fyne.NewSize(104, 34), ok))
	win.SetContent(container.NewPadded(container.NewBorder(message, buttonBar, nil, nil, nil)))
	win.SetCloseIntercept(uiApp.Quit)
	win.Show()
	uiApp.Run()
}
