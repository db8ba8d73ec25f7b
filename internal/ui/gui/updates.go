//go:build !headless

package gui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/update"
)

const updateRequestTimeout = 2 * time.Minute

// progressBar backs update.ProgressSink.
type progressBar struct {
	c *controller
}

func (p progressBar) SetProgress(fraction float64) {
	fyne.Do(func() {
		if fraction < 0 {
			p.c.progress.Hide()
			return
		}
		p.c.progress.SetValue(min(fraction, 1))
		p.c.progress.Show()
	})
}

// checkForUpdates is the manual check from the button or tray menu. It
// always answers with a dialog.
func (c *controller) checkForUpdates() {
	fyne.Do(func() {
		if c.checking {
			return
		}
		c.checking = true
		c.checkButton.Disable()
		c.win.Show()
		c.win.RequestFocus()
		c.goBackground("manual update check", func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, updateRequestTimeout)
			defer cancel()
			result, err := c.shell.CheckForUpdates(ctx)
			fyne.Do(func() {
				c.checking = false
				if c.shell.Updates.Enabled() {
					c.checkButton.Enable()
				}
				c.showCheckResult(result, err)
			})
		})
	})
}

func (c *controller) showCheckResult(result update.CheckResult, err error) {
	switch {
	case !result.Enabled:
		dialog.ShowInformation("Updates", "Auto-update is disabled for this build.", c.win)
	case err != nil:
		dialog.ShowError(fmt.Errorf("update check failed: %w", err), c.win)
	case result.Downloaded:
		c.promptInstall(result.Version)
	case result.HasUpdate:
		c.promptUpdate(result.Version, result.Notes)
	default:
		dialog.ShowInformation("Updates", "You are on the latest version ("+c.shell.GetAppVersion()+").", c.win)
	}
}

// promptUpdate offers Update now, Later or Ignore this version.
func (c *controller) promptUpdate(version, notes string) {
	if c.updatePrompt != nil {
		c.updatePrompt.Hide()
	}
	c.updateText.SetText("Version " + version + " is available.")
	c.downloadButton.Show()

	message := widget.NewLabel(fmt.Sprintf("Version %s is available (current %s).", version, c.shell.GetAppVersion()))
	message.Wrapping = fyne.TextWrapWord
	body := container.NewVBox(message)
	if notes != "" {
		noteText := widget.NewLabel(notes)
		noteText.Wrapping = fyne.TextWrapWord
		scroll := container.NewVScroll(noteText)
		scroll.SetMinSize(fyne.NewSize(420, 160))
		body.Add(scroll)
	}

	var d dialog.Dialog
	now := widget.NewButton("Update now", func() {
		d.Hide()
		c.downloadUpdate()
	})
	now.Importance = widget.HighImportance
	later := widget.NewButton("Later", func() { d.Hide() })
	ignore := widget.NewButton("Ignore this version", func() {
		d.Hide()
		stored := c.shell.IgnoreUpdate(version)
		c.updateText.SetText("Version " + stored + " will not be announced again.")
	})
	body.Add(container.NewHBox(layout.NewSpacer(), ignore, later, now))

	d = dialog.NewCustomWithoutButtons("Update available", body, c.win)
	c.updatePrompt = d
	d.Show()
}

func (c *controller) downloadUpdate() {
	c.downloadButton.Disable()
	c.updateText.SetText("Downloading update...")
	c.goBackground("update download", func(ctx context.Context) {
		err := c.shell.DownloadAndInstall(ctx)
		fyne.Do(func() {
			c.downloadButton.Enable()
			if err == nil {
				return
			}
			if errors.Is(err, update.ErrBusy) {
				c.updateText.SetText("A download is already running.")
				return
			}
			c.downloadButton.Show()
			dialog.ShowError(fmt.Errorf("update download failed: %w", err), c.win)
		})
	})
}

func (c *controller) installUpdate() {
	if err := c.shell.InstallUpdate(); err != nil {
		dialog.ShowError(fmt.Errorf("update install failed: %w", err), c.win)
	}
}

// handleUpdateEvent runs on the UI thread for every controller event.
func (c *controller) handleUpdateEvent(event update.Event) {
	switch event.Kind {
	case update.EventUpdateAvailable:
		c.logger.Debug("showing update prompt", logging.Field("version", event.Version))
		c.promptUpdate(event.Version, event.Notes)
	case update.EventDownloadProgress:
		p := event.Progress
		if p.Total > 0 {
			c.updateText.SetText(fmt.Sprintf("Downloading... %.0f%% (%s/s)", p.Percent, humanBytes(float64(p.BytesPerSecond))))
		}
	case update.EventUpdateDownloaded:
		c.promptInstall(event.Version)
	case update.EventUpdateError:
		c.updateText.SetText("Update error: " + event.Message)
	}
}

func (c *controller) promptInstall(version string) {
	c.downloadButton.Hide()
	c.installButton.Show()
	c.updateText.SetText("Version " + version + " is ready to install.")
	dialog.ShowConfirm("Update downloaded",
		"Version "+version+" was downloaded. Restart and install now?",
		func(ok bool) {
			if ok {
				c.installUpdate()
			}
		}, c.win)
}

func humanBytes(n float64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%.0f B", n)
	}
	div, exp := float64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", n/div, "KMGTPE"[exp])
}
