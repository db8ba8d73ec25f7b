package headless

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/config"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/update"
	headlessview "wechat-desktop/internal/ui/headless/view"
)

func newTestModel(t *testing.T) *headlessModel {
	t.Helper()
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	cfg := app.Config{
		Options: config.Options{
			Host:       "127.0.0.1",
			Port:       1,
			AutoUpdate: "0",
		},
		Version: "1.2.3",
		DataDir: t.TempDir(),
		ExeDir:  t.TempDir(),
	}
	m := newHeadlessModel(context.Background(), cfg, logger)
	m.openURL = func(string) error { return nil }
	t.Cleanup(m.cleanup)
	return m
}

func press(m *headlessModel, msg tea.KeyMsg) {
	m.Update(msg)
}

func TestUpdateAvailableEventOpensPrompt(t *testing.T) {
	m := newTestModel(t)
	m.Update(updateEventMsg(update.Event{Kind: update.EventUpdateAvailable, Version: "2.0.0", Notes: "notes"}))
	if !m.ui.Prompt.Open || m.ui.Prompt.Version != "2.0.0" || m.ui.Prompt.Downloaded {
		t.Fatalf("unexpected prompt: %+v", m.ui.Prompt)
	}

	m.Update(updateEventMsg(update.Event{Kind: update.EventUpdateAvailable, Version: "2.0.1"}))
	if m.ui.Prompt.Version != "2.0.0" {
		t.Fatalf("open prompt should not be replaced, got %q", m.ui.Prompt.Version)
	}
}

func TestDownloadEventsDriveProgressAndInstallPrompt(t *testing.T) {
	m := newTestModel(t)
	m.Update(updateEventMsg(update.Event{Kind: update.EventDownloadProgress, Progress: update.Progress{
		Percent: 50, Transferred: 2048, Total: 4096, BytesPerSecond: 1024,
	}}))
	if !m.ui.ProgressShown || m.ui.ProgressValue != 0.5 {
		t.Fatalf("progress not shown: %v %v", m.ui.ProgressShown, m.ui.ProgressValue)
	}
	if !strings.Contains(m.ui.ProgressDetail, "2.0 KB / 4.0 KB") {
		t.Fatalf("unexpected detail: %q", m.ui.ProgressDetail)
	}

	m.Update(updateEventMsg(update.Event{Kind: update.EventUpdateDownloaded, Version: "2.0.0"}))
	if m.ui.ProgressShown {
		t.Fatalf("progress should hide once downloaded")
	}
	if !m.ui.Prompt.Open || !m.ui.Prompt.Downloaded {
		t.Fatalf("expected install prompt, got %+v", m.ui.Prompt)
	}
}

func TestUpdateErrorEventShowsModal(t *testing.T) {
	m := newTestModel(t)
	m.Update(updateEventMsg(update.Event{Kind: update.EventUpdateError, Message: "feed unreachable"}))
	if !strings.Contains(m.ui.ErrorModalText, "feed unreachable") {
		t.Fatalf("unexpected modal text: %q", m.ui.ErrorModalText)
	}
}

func TestQuitKeyClosesShell(t *testing.T) {
	m := newTestModel(t)
	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.shell.Lifecycle.Quitting() {
		t.Fatalf("q should close the window and quit the shell")
	}
}

func TestFatalStartupQuitsAfterDismiss(t *testing.T) {
	m := newTestModel(t)
	m.Update(startupDoneMsg{err: &app.FatalError{Stage: app.StageHealth, DataDir: m.shell.DataDir(), Err: errors.New("timed out")}})
	if !strings.Contains(m.ui.ErrorModalText, "timed out") {
		t.Fatalf("fatal detail missing: %q", m.ui.ErrorModalText)
	}
	if m.shell.Lifecycle.Quitting() {
		t.Fatalf("shell should wait for the error to be dismissed")
	}

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.shell.Lifecycle.Quitting() {
		t.Fatalf("dismissing the startup error should quit")
	}
	if m.fatal == nil {
		t.Fatalf("fatal error should be kept for the exit code")
	}
}

func TestPresentRecordsStartURL(t *testing.T) {
	m := newTestModel(t)
	m.Update(presentMsg{url: "http://127.0.0.1:10392/"})
	if m.runtimeView().StartURL != "http://127.0.0.1:10392/" {
		t.Fatalf("start URL not recorded")
	}

	var opened string
	m.openURL = func(url string) error {
		opened = url
		return nil
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	if cmd == nil {
		t.Fatalf("expected an open command")
	}
	if msg, ok := cmd().(openURLResultMsg); !ok || msg.err != nil {
		t.Fatalf("unexpected open result: %#v", msg)
	}
	if opened != "http://127.0.0.1:10392/" {
		t.Fatalf("opened %q", opened)
	}
}

func TestToggleCloseBehavior(t *testing.T) {
	m := newTestModel(t)
	before := m.shell.GetCloseBehavior()
	m.applyEffect(headlessview.EffectToggleCloseBehavior)
	if m.shell.GetCloseBehavior() == before {
		t.Fatalf("close behavior did not change from %q", before)
	}
}

func TestChooseDirectoryCancelAnswersCaller(t *testing.T) {
	m := newTestModel(t)
	var got *app.DirectoryChoice
	m.Update(chooseDirMsg{title: "Pick", done: func(choice app.DirectoryChoice) { got = &choice }})
	if !m.ui.FilePickerOpen || m.ui.FilePickerTitle != "Pick" {
		t.Fatalf("picker should be open")
	}

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.ui.FilePickerOpen {
		t.Fatalf("esc should close the picker")
	}
	if got == nil || !got.Canceled {
		t.Fatalf("expected a canceled choice, got %+v", got)
	}
}

func TestExportLogsThroughPicker(t *testing.T) {
	m := newTestModel(t)
	if err := os.WriteFile(filepath.Join(m.shell.DataDir(), logging.MainLogFileName), []byte("line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := t.TempDir()

	var pending []tea.Msg
	m.deliver = func(msg tea.Msg) { pending = append(pending, msg) }
	m.exportLogs()
	if len(pending) != 1 {
		t.Fatalf("expected one chooser request, got %d", len(pending))
	}
	request, ok := pending[0].(chooseDirMsg)
	if !ok {
		t.Fatalf("unexpected message %T", pending[0])
	}
	m.Update(request)
	m.ui.FilePicker.CurrentDirectory = target
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if ok := waitWithTimeout(&m.bgWG, 5*time.Second); !ok {
		t.Fatalf("export did not finish")
	}
	if _, err := os.Stat(filepath.Join(target, logging.MainLogFileName)); err != nil {
		t.Fatalf("exported log missing: %v", err)
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[float64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Fatalf("humanBytes(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestManualCheckOfDownloadedVersionOffersInstall(t *testing.T) {
	m := newTestModel(t)
	m.Update(checkResultMsg{result: update.CheckResult{Enabled: true, HasUpdate: true, Downloaded: true, Version: "2.0.0"}})
	if !m.ui.Prompt.Open || !m.ui.Prompt.Downloaded {
		t.Fatalf("expected install prompt, got %+v", m.ui.Prompt)
	}
	if m.ui.Prompt.Choice != headlessview.PromptChoiceInstall {
		t.Fatalf("install should be preselected, got %d", m.ui.Prompt.Choice)
	}
}
