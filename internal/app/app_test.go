package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"wechat-desktop/internal/backend"
	"wechat-desktop/internal/config"
	"wechat-desktop/internal/runstatus"
)

const helperEnv = "WECHAT_APP_BACKEND_HELPER"

// TestHelperProcess stands in for the backend executable.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	switch os.Getenv("HELPER_MODE") {
	case "serve":
		mux := http.NewServeMux()
		mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"status":"ok"}`)
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html>ui</html>")
		})
		addr := net.JoinHostPort(os.Getenv("WECHAT_TOOL_HOST"), os.Getenv("WECHAT_TOOL_PORT"))
		_ = http.ListenAndServe(addr, mux)
	case "crash":
		fmt.Fprintln(os.Stderr, "backend crashed")
		os.Exit(2)
	}
	os.Exit(0)
}

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	return port
}

type fakeSurface struct {
	mu        sync.Mutex
	window    *fakeWindow
	openErr   error
	presented []string
}

func (s *fakeSurface) OpenWindow() (Window, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.window, nil
}

func (s *fakeSurface) Present(url string) error {
	s.mu.Lock()
	s.presented = append(s.presented, url)
	s.mu.Unlock()
	return nil
}

type appHarness struct {
	app   *App
	trays []*fakeTray
	exits int
}

func newAppHarness(t *testing.T, mode string, mutate func(*Config)) *appHarness {
	t.Helper()
	dataDir := t.TempDir()
	cfg := Config{
		Options: config.Options{
			Host:         "127.0.0.1",
			Port:         freePort(t),
			ResourcesDir: filepath.Join(t.TempDir(), "resources"),
			RepoRoot:     t.TempDir(),
			AutoUpdate:   "0",
		},
		Version:        "1.2.3",
		Packaged:       true,
		DataDir:        dataDir,
		ExeDir:         t.TempDir(),
		BackendCommand: []string{os.Args[0], "-test.run=^TestHelperProcess$", "--"},
		BackendEnv:     map[string]string{helperEnv: "1", "HELPER_MODE": mode},
		HealthTimeout:  10 * time.Second,
		LoadTimeout:    5 * time.Second,
		LoadInterval:   50 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	h := &appHarness{}
	frontEnd := FrontEnd{
		NewTray: func(menu TrayMenu) (Tray, error) {
			tray := &fakeTray{menu: menu}
			h.trays = append(h.trays, tray)
			return tray, nil
		},
		ExitLoop: func() { h.exits++ },
	}
	h.app = New(context.Background(), cfg, frontEnd, quietLogger())
	t.Cleanup(h.app.Close)
	return h
}

func waitBackendExit(t *testing.T, handle *backend.Handle) {
	t.Helper()
	select {
	case <-handle.Done():
	case <-time.After(15 * time.Second):
		t.Fatalf("backend pid %d still running", handle.PID())
	}
}

func TestStartupLoadsStartURLAndHidesToTray(t *testing.T) {
	h := newAppHarness(t, "serve", nil)
	surface := &fakeSurface{window: &fakeWindow{}}

	if err := h.app.Startup(context.Background(), surface); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if h.app.Status() != runstatus.Ready {
		t.Fatalf("status = %q, want %q", h.app.Status(), runstatus.Ready)
	}
	want := "http://" + h.app.cfg.Options.BackendAddr() + "/"
	if len(surface.presented) != 1 || surface.presented[0] != want {
		t.Fatalf("presented = %v, want [%s]", surface.presented, want)
	}
	if len(h.trays) != 1 {
		t.Fatalf("expected tray after startup, got %d", len(h.trays))
	}

	if h.app.Lifecycle.RequestClose() {
		t.Fatalf("close with tray behavior should hide")
	}
	handle := h.app.Backend.Handle()
	if handle == nil {
		t.Fatalf("backend handle missing")
	}
	select {
	case <-handle.Done():
		t.Fatalf("backend exited while hidden to tray")
	case <-time.After(200 * time.Millisecond):
	}

	h.trays[0].menu.Quit()
	waitBackendExit(t, handle)
	if h.exits != 1 {
		t.Fatalf("exits = %d, want 1", h.exits)
	}
}

func TestCloseWithExitBehaviorStopsBackend(t *testing.T) {
	h := newAppHarness(t, "serve", nil)
	h.app.SetCloseBehavior("exit")
	if err := h.app.Startup(context.Background(), &fakeSurface{window: &fakeWindow{}}); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if len(h.trays) != 0 {
		t.Fatalf("exit behavior created a tray")
	}
	handle := h.app.Backend.Handle()

	if !h.app.Lifecycle.RequestClose() {
		t.Fatalf("close with exit behavior should close")
	}
	waitBackendExit(t, handle)
	if h.app.Status() != runstatus.Stopping {
		t.Fatalf("status = %q, want %q", h.app.Status(), runstatus.Stopping)
	}
}

func TestStartupFailsWhenPackagedBackendMissing(t *testing.T) {
	h := newAppHarness(t, "serve", func(cfg *Config) {
		cfg.BackendCommand = nil
	})
	err := h.app.Startup(context.Background(), &fakeSurface{window: &fakeWindow{}})

	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Startup() error = %v, want *FatalError", err)
	}
	if fatal.Stage != StageSpawn || !errors.Is(err, backend.ErrBackendNotFound) {
		t.Fatalf("unexpected fatal error: %+v", fatal)
	}
	if fatal.DataDir != h.app.DataDir() || len(fatal.LogFiles) != 2 {
		t.Fatalf("fatal error lacks log location: %+v", fatal)
	}
	if !strings.Contains(fatal.Detail(), h.app.DataDir()) {
		t.Fatalf("detail does not name data dir: %q", fatal.Detail())
	}
	if h.app.Status() != runstatus.Failed {
		t.Fatalf("status = %q, want %q", h.app.Status(), runstatus.Failed)
	}
}

func TestStartupFailsWhenBackendNeverAnswers(t *testing.T) {
	h := newAppHarness(t, "crash", func(cfg *Config) {
		cfg.HealthTimeout = 600 * time.Millisecond
	})
	surface := &fakeSurface{window: &fakeWindow{}}
	err := h.app.Startup(context.Background(), surface)

	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Stage != StageHealth {
		t.Fatalf("Startup() error = %v, want health failure", err)
	}
	if len(surface.presented) != 0 {
		t.Fatalf("window presented after health failure")
	}
}

func TestStartupFailsWhenStartURLNeverLoads(t *testing.T) {
	h := newAppHarness(t, "serve", func(cfg *Config) {
		cfg.Options.StartURL = "http://127.0.0.1:" + freePort(t) + "/"
		cfg.LoadTimeout = 300 * time.Millisecond
	})
	err := h.app.Startup(context.Background(), &fakeSurface{window: &fakeWindow{}})

	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Stage != StageLoad {
		t.Fatalf("Startup() error = %v, want load failure", err)
	}
	if !errors.Is(err, ErrLoadTimeout) {
		t.Fatalf("error %v does not wrap ErrLoadTimeout", err)
	}
}

func TestStartupFailsWhenWindowCannotOpen(t *testing.T) {
	h := newAppHarness(t, "serve", nil)
	err := h.app.Startup(context.Background(), &fakeSurface{openErr: errors.New("no display")})

	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Stage != StageWindow {
		t.Fatalf("Startup() error = %v, want window failure", err)
	}
	// A nil handle means the backend is already gone.
	if handle := h.app.Backend.Handle(); handle != nil {
		waitBackendExit(t, handle)
	}
}

func TestExportLogsCopiesExistingLogs(t *testing.T) {
	h := newAppHarness(t, "serve", nil)
	main := filepath.Join(h.app.DataDir(), "desktop-main.log")
	if err := os.WriteFile(main, []byte("line\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out := t.TempDir()

	written, err := h.app.ExportLogs(out)
	if err != nil {
		t.Fatalf("ExportLogs() error = %v", err)
	}
	if len(written) != 1 || filepath.Base(written[0]) != "desktop-main.log" {
		t.Fatalf("written = %v", written)
	}
	data, err := os.ReadFile(written[0])
	if err != nil || string(data) != "line\n" {
		t.Fatalf("exported content = %q, err = %v", data, err)
	}

	if _, err := h.app.ExportLogs("  "); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}

func TestChooseDirectoryWithoutChooserCancels(t *testing.T) {
	h := newAppHarness(t, "serve", nil)
	var got DirectoryChoice
	h.app.ChooseDirectory("", func(choice DirectoryChoice) { got = choice })
	if !got.Canceled {
		t.Fatalf("choice = %+v, want canceled", got)
	}
}

func TestUpdateCommandsWhenDisabled(t *testing.T) {
	h := newAppHarness(t, "serve", nil)
	result, err := h.app.CheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	if result.Enabled {
		t.Fatalf("updates reported enabled with AUTO_UPDATE_ENABLED=0")
	}
	if h.app.GetAppVersion() != "1.2.3" {
		t.Fatalf("GetAppVersion() = %q", h.app.GetAppVersion())
	}
	if got := h.app.IgnoreUpdate(" 2.0.0 "); got != "2.0.0" {
		t.Fatalf("IgnoreUpdate() = %q", got)
	}
	if h.app.Settings.IgnoredUpdateVersion() != "2.0.0" {
		t.Fatalf("ignored version not persisted")
	}
}
