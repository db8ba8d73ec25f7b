package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/config"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/update"
	headlessview "wechat-desktop/internal/ui/headless/view"
)

const (
	updateRequestTimeout = 2 * time.Minute
	mouseDrainDelay      = 120 * time.Millisecond
)

func (m *headlessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		if _, ok := msg.(quitNowMsg); ok {
			return m, tea.Quit
		}
		return m, nil
	}

	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.ui = m.ui.WithWindowSize(ws.Width, ws.Height)
		m.ui.ResizeLogs(headlessview.DefaultNonLogLayoutReserveMin, headlessview.DefaultMinLogPanelHeight)
		m.ui.ResizeFilePicker()
		m.ui.ResizeProgress()
		return m, nil
	}

	if m.ui.FilePickerOpen {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m.updateFilePickerMsg(msg)
		}
		if _, ok := msg.(tea.MouseMsg); ok {
			return m, nil
		}
		if next, cmd, handled := m.updateFilePickerInternal(msg); handled {
			return next, cmd
		}
	}

	switch msg := msg.(type) {
	case logMsg:
		m.ui.AppendLogs(string(msg), headlessLogLineLimit)
		return m, waitForString(m.logCh, func(s string) tea.Msg { return logMsg(s) })
	case statusMsg:
		m.status = string(msg)
		return m, waitForString(m.statusCh, func(s string) tea.Msg { return statusMsg(s) })
	case progressMsg:
		m.ui = m.ui.WithProgress(float64(msg), "")
		return m, waitForProgress(m.progressCh)
	case updateEventMsg:
		m.handleUpdateEvent(update.Event(msg))
		return m, waitForUpdateEvent(m.shell)
	case presentMsg:
		m.startURL = msg.url
		return m, nil
	case startupDoneMsg:
		m.handleStartupDone(msg.err)
		return m, nil
	case checkRequestMsg:
		m.checkForUpdates()
		return m, nil
	case checkResultMsg:
		m.checking = false
		m.showCheckResult(msg.result, msg.err)
		return m, nil
	case commandDoneMsg:
		m.checking = false
		if msg.err != nil {
			m.ui.ErrorModalText = msg.what + " failed: " + msg.err.Error()
		}
		return m, nil
	case chooseDirMsg:
		return m.openFilePicker(msg)
	case exportDoneMsg:
		m.showExportResult(msg)
		return m, nil
	case openURLResultMsg:
		if msg.err != nil {
			m.ui.ErrorModalText = "Failed to open " + msg.url + ": " + msg.err.Error()
			m.logger.Warn("failed to open url", logging.Field("url", msg.url), logging.Field("error", msg.err))
		}
		return m, nil
	case beginQuitMsg:
		m.quitting = true
		return m, quitProgramCmd()
	case tickMsg:
		m.ui = m.ui.WithTick()
		return m, tickCmd()
	case tea.MouseMsg:
		next, cmd, effect := headlessview.ReduceMouse(m.ui, msg)
		m.ui = next
		return m, tea.Batch(cmd, m.applyEffect(effect))
	case tea.KeyMsg:
		next, effect := headlessview.ReduceKey(m.ui, msg)
		m.ui = next
		cmd := m.applyEffect(effect)
		m.quitAfterFatal()
		return m, cmd
	}
	return m, nil
}

func (m *headlessModel) applyEffect(effect headlessview.Effect) tea.Cmd {
	switch effect {
	case headlessview.EffectRequestQuit:
		m.shell.Lifecycle.RequestClose()
	case headlessview.EffectOpenUI:
		return m.openUICmd()
	case headlessview.EffectCheckUpdates:
		m.checkForUpdates()
	case headlessview.EffectToggleCloseBehavior:
		m.toggleCloseBehavior()
	case headlessview.EffectExportLogs:
		m.exportLogs()
	case headlessview.EffectDownloadUpdate:
		m.downloadUpdate()
	case headlessview.EffectInstallUpdate:
		m.installUpdate()
	case headlessview.EffectIgnoreUpdate:
		m.shell.IgnoreUpdate(m.ui.Prompt.Version)
	}
	return nil
}

// quitAfterFatal ends the app once the startup error has been dismissed.
func (m *headlessModel) quitAfterFatal() {
	if m.fatal != nil && m.ui.ErrorModalText == "" {
		m.shell.Quit()
	}
}

func (m *headlessModel) handleStartupDone(err error) {
	if err == nil {
		m.followBackendLog()
		return
	}
	if errors.Is(err, context.Canceled) {
		m.shell.Quit()
		return
	}
	m.fatal = err
	detail := err.Error()
	var fatal *app.FatalError
	if errors.As(err, &fatal) {
		detail = fatal.Detail()
	}
	m.ui.Prompt.Open = false
	m.ui.InfoModalText = ""
	m.ui.ErrorModalText = "Startup failed.\n\n" + detail
}

func (m *headlessModel) openUICmd() tea.Cmd {
	url := m.startURL
	if url == "" {
		return nil
	}
	open := m.openURL
	return func() tea.Msg {
		return openURLResultMsg{url: url, err: open(url)}
	}
}

func (m *headlessModel) toggleCloseBehavior() {
	next := config.CloseToTray
	if m.shell.GetCloseBehavior() == config.CloseToTray {
		next = config.CloseToExit
	}
	m.shell.SetCloseBehavior(string(next))
}

func (m *headlessModel) checkForUpdates() {
	if m.checking {
		return
	}
	m.checking = true
	ctx := m.rootCtx
	m.goBackground("manual update check", func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, updateRequestTimeout)
		defer cancel()
		result, err := m.shell.CheckForUpdates(ctx)
		return checkResultMsg{result: result, err: err}
	})
}

func (m *headlessModel) showCheckResult(result update.CheckResult, err error) {
	switch {
	case !result.Enabled:
		m.ui.InfoModalText = "Auto-update is disabled for this build."
	case err != nil:
		m.ui.ErrorModalText = "Update check failed: " + err.Error()
	case result.HasUpdate:
		m.ui = m.ui.WithUpdatePrompt(result.Version, result.Notes, result.Downloaded)
	default:
		m.ui.InfoModalText = "You are on the latest version (" + m.shell.GetAppVersion() + ")."
	}
}

func (m *headlessModel) downloadUpdate() {
	if m.checking {
		return
	}
	m.checking = true
	m.ui = m.ui.WithProgress(0, "")
	ctx := m.rootCtx
	m.goBackground("update download", func() tea.Msg {
		err := m.shell.DownloadAndInstall(ctx)
		return commandDoneMsg{what: "Update download", err: err}
	})
}

func (m *headlessModel) installUpdate() {
	if err := m.shell.InstallUpdate(); err != nil {
		m.ui.ErrorModalText = "Install failed: " + err.Error()
	}
}

func (m *headlessModel) handleUpdateEvent(event update.Event) {
	switch event.Kind {
	case update.EventUpdateAvailable:
		if m.ui.Prompt.Open || m.ui.FilePickerOpen || m.fatal != nil {
			return
		}
		m.ui = m.ui.WithUpdatePrompt(event.Version, event.Notes, false)
	case update.EventDownloadProgress:
		p := event.Progress
		detail := humanBytes(float64(p.Transferred))
		if p.Total > 0 {
			detail += " / " + humanBytes(float64(p.Total))
		}
		if p.BytesPerSecond > 0 {
			detail += " • " + humanBytes(float64(p.BytesPerSecond)) + "/s"
		}
		fraction := m.ui.ProgressValue
		if p.Total > 0 {
			fraction = p.Percent / 100
		}
		m.ui = m.ui.WithProgress(fraction, detail)
	case update.EventUpdateDownloaded:
		m.ui = m.ui.WithProgress(-1, "")
		if m.fatal != nil {
			return
		}
		m.ui = m.ui.WithUpdatePrompt(event.Version, event.Notes, true)
	case update.EventUpdateError:
		m.ui = m.ui.WithProgress(-1, "")
		m.logger.Warn("update error", logging.Field("error", event.Message))
		if m.ui.ErrorModalText == "" {
			m.ui.ErrorModalText = "Update failed: " + event.Message
		}
	}
}

func (m *headlessModel) exportLogs() {
	m.shell.ChooseDirectory("Export logs to", func(choice app.DirectoryChoice) {
		if choice.Canceled || len(choice.Paths) == 0 {
			return
		}
		dir := choice.Paths[0]
		m.goBackground("export logs", func() tea.Msg {
			written, err := m.shell.ExportLogs(dir)
			return exportDoneMsg{dir: dir, written: written, err: err}
		})
	})
}

func (m *headlessModel) showExportResult(msg exportDoneMsg) {
	switch {
	case msg.err != nil:
		m.ui.ErrorModalText = "Export failed: " + msg.err.Error()
	case len(msg.written) == 0:
		m.ui.InfoModalText = "No log files to export yet."
	default:
		names := make([]string, 0, len(msg.written))
		for _, path := range msg.written {
			names = append(names, filepath.Base(path))
		}
		m.ui.InfoModalText = fmt.Sprintf("Exported %s to %s", strings.Join(names, ", "), msg.dir)
	}
}

func (m *headlessModel) openFilePicker(msg chooseDirMsg) (tea.Model, tea.Cmd) {
	if m.pickerDone != nil {
		msg.done(app.DirectoryChoice{Canceled: true})
		return m, nil
	}
	startDir := m.shell.DataDir()
	if info, err := os.Stat(startDir); startDir == "" || err != nil || !info.IsDir() {
		startDir = "."
	}
	m.pickerDone = msg.done
	m.ui = m.ui.WithFilePicker(msg.title, startDir)
	return m, m.ui.FilePicker.Init()
}

// finishFilePicker closes the picker and answers the pending chooser.
func (m *headlessModel) finishFilePicker(choice app.DirectoryChoice) {
	m.ui.FilePickerOpen = false
	done := m.pickerDone
	m.pickerDone = nil
	if done != nil {
		done(choice)
	}
}

func (m *headlessModel) updateFilePickerMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c":
			m.finishFilePicker(app.DirectoryChoice{Canceled: true})
			m.shell.Lifecycle.RequestClose()
			return m, nil
		case "esc":
			m.finishFilePicker(app.DirectoryChoice{Canceled: true})
			return m, nil
		case "left", "backspace":
			parent := filepath.Dir(m.ui.FilePicker.CurrentDirectory)
			if parent == "" || parent == m.ui.FilePicker.CurrentDirectory {
				return m, nil
			}
			m.ui.FilePicker.CurrentDirectory = parent
			return m, m.ui.FilePicker.Init()
		case "enter":
			return m.selectCurrentFilePickerDir()
		}
	}
	next, cmd, _ := m.updateFilePickerInternal(msg)
	return next, cmd
}

// updateFilePickerInternal feeds the picker its own messages, such as
// directory listings.
func (m *headlessModel) updateFilePickerInternal(msg tea.Msg) (tea.Model, tea.Cmd, bool) {
	var cmd tea.Cmd
	m.ui.FilePicker, cmd = m.ui.FilePicker.Update(msg)
	if ok, path := m.ui.FilePicker.DidSelectFile(msg); ok {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			path = filepath.Dir(path)
		}
		m.selectDirectory(path)
		return m, nil, true
	}
	return m, cmd, cmd != nil
}

func (m *headlessModel) selectCurrentFilePickerDir() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.ui.FilePicker.CurrentDirectory)
	if path == "" {
		path = "."
	}
	m.selectDirectory(path)
	return m, nil
}

func (m *headlessModel) selectDirectory(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	m.finishFilePicker(app.DirectoryChoice{Paths: []string{path}})
}

func quitProgramCmd() tea.Cmd {
	return tea.Sequence(func() tea.Msg {
		return tea.DisableMouse()
	}, waitForMouseDrainCmd(), func() tea.Msg {
		return quitNowMsg{}
	})
}

func waitForMouseDrainCmd() tea.Cmd {
	return func() tea.Msg {
		time.Sleep(mouseDrainDelay)
		return nil
	}
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
	return fmt.Sprintf("%.1f %cB", n/div, "KMGTPE"[exp])
}
