//go:build !headless

package gui

import (
	"context"
	"image/color"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/config"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/runstatus"
)

var (
	statusIdleColor  = color.NRGBA{R: 145, G: 145, B: 145, A: 255}
	statusBusyColor  = color.NRGBA{R: 219, G: 167, B: 74, A: 255}
	statusOKColor    = color.NRGBA{R: 72, G: 189, B: 109, A: 255}
	statusErrorColor = color.NRGBA{R: 220, G: 84, B: 84, A: 255}
)

const windowTitle = "WeChatDataAnalysis"

type controller struct {
	fyneApp fyne.App
	win     fyne.Window
	shell   *app.App
	logger  *logging.Logger

	statusBadge *statusBadge
	statusText  *widget.Label
	startLink   *widget.Hyperlink
	openButton  *widget.Button
	versionText *widget.Label
	closeToTray *switchToggle
	progress    *widget.ProgressBar
	updateText  *widget.Label

	checkButton    *widget.Button
	downloadButton *widget.Button
	installButton  *widget.Button
	exportButton   *widget.Button
	logsButton     *widget.Button

	logs *logView

	ctx      context.Context
	cancel   context.CancelFunc
	bgWG     sync.WaitGroup
	unsubs   []func()
	fatal    error
	fatalMu  sync.Mutex
	quitOnce sync.Once

	checking     bool
	updatePrompt dialog.Dialog
}

func (c *controller) buildUI() {
	c.statusBadge = newStatusBadge()
	c.statusText = widget.NewLabel(runstatus.Starting)
	c.setStatus(runstatus.Starting)

	c.startLink = widget.NewHyperlink("", nil)
	c.startLink.Hide()
	c.openButton = widget.NewButton("Open UI", c.openStartURL)
	c.openButton.Disable()

	c.versionText = widget.NewLabel("Version " + c.shell.GetAppVersion())
	c.closeToTray = newSwitchToggle(c.shell.GetCloseBehavior() == config.CloseToTray, func(on bool) {
		behavior := config.CloseToExit
		if on {
			behavior = config.CloseToTray
		}
		c.shell.SetCloseBehavior(string(behavior))
	})
	if !c.shell.Packaged() {
		// Dev builds never create a tray, so closing always exits.
		c.closeToTray.Disable()
	}

	c.progress = widget.NewProgressBar()
	c.progress.Hide()
	c.updateText = widget.NewLabel("")
	c.updateText.Wrapping = fyne.TextWrapWord

	c.checkButton = widget.NewButton("Check for updates", c.checkForUpdates)
	c.downloadButton = widget.NewButton("Download update", c.downloadUpdate)
	c.downloadButton.Hide()
	c.installButton = widget.NewButton("Restart and install", c.installUpdate)
	c.installButton.Hide()
	if !c.shell.Updates.Enabled() {
		c.checkButton.Disable()
		c.updateText.SetText("Auto-update is disabled for this build.")
	}

	c.exportButton = widget.NewButton("Export logs...", c.exportLogs)
	c.logs = newLogView(c.fyneApp, c.logger)
	c.logsButton = widget.NewButton("Show logs", c.logs.Show)

	statusRow := container.NewHBox(c.statusBadge, c.statusText, layout.NewSpacer(), c.versionText)
	urlRow := container.NewHBox(c.openButton, c.startLink)
	updates := container.NewVBox(
		widget.NewLabel("Updates"),
		container.NewHBox(c.checkButton, c.downloadButton, c.installButton),
		c.progress,
		c.updateText,
	)
	settings := container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("Close to tray"), c.closeToTray, nil),
		container.NewHBox(c.exportButton, c.logsButton),
	)

	minAnchor := canvas.NewRectangle(color.Transparent)
	minAnchor.SetMinSize(fyne.NewSize(460, 300))
	content := container.NewPadded(container.NewVBox(
		statusRow,
		urlRow,
		widget.NewSeparator(),
		updates,
		widget.NewSeparator(),
		settings,
	))
	c.win.SetContent(container.NewStack(minAnchor, content))
}

func (c *controller) setStatus(status string) {
	c.statusText.SetText(status)
	c.statusBadge.SetColor(statusColor(status))
}

func statusColor(status string) color.NRGBA {
	switch runstatus.KindOf(status) {
	case runstatus.KindOK:
		return statusOKColor
	case runstatus.KindBusy:
		return statusBusyColor
	case runstatus.KindError:
		return statusErrorColor
	default:
		return statusIdleColor
	}
}

func (c *controller) presentURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	fyne.Do(func() {
		c.startLink.SetText(raw)
		c.startLink.SetURL(u)
		c.startLink.Show()
		c.openButton.Enable()
	})
	return c.fyneApp.OpenURL(u)
}

func (c *controller) openStartURL() {
	u, err := url.Parse(c.shell.StartURL())
	if err != nil {
		dialog.ShowError(err, c.win)
		return
	}
	if err := c.fyneApp.OpenURL(u); err != nil {
		dialog.ShowError(err, c.win)
	}
}

func (c *controller) exportLogs() {
	c.shell.ChooseDirectory("Export logs", func(choice app.DirectoryChoice) {
		if choice.Canceled || len(choice.Paths) == 0 {
			return
		}
		written, err := c.shell.ExportLogs(choice.Paths[0])
		if err != nil {
			dialog.ShowError(err, c.win)
			return
		}
		if len(written) == 0 {
			dialog.ShowInformation("Export logs", "No log files exist yet.", c.win)
			return
		}
		dialog.ShowInformation("Export logs", "Copied to "+choice.Paths[0]+":\n"+strings.Join(baseNames(written), "\n"), c.win)
	})
}

// chooseDirectory backs app.FrontEnd.ChooseDirectory. It runs on the UI
// thread.
func (c *controller) chooseDirectory(title string, done func(app.DirectoryChoice)) {
	fyne.Do(func() {
		picker := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				c.logger.Warn("folder picker failed", logging.Field("error", err))
				done(app.DirectoryChoice{Canceled: true})
				return
			}
			if uri == nil {
				done(app.DirectoryChoice{Canceled: true})
				return
			}
			done(app.DirectoryChoice{Paths: []string{uri.Path()}})
		}, c.win)
		picker.SetTitleText(title)
		picker.Show()
	})
}

func baseNames(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Base(p))
	}
	return out
}
