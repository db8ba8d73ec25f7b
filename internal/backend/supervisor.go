// Package backend spawns the local backend worker, records its output and
// tears it down when the shell exits.
package backend

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"wechat-desktop/internal/logging"
)

const (
	StdioLogFileName = "backend-stdio.log"

	killTreeTimeout = 5 * time.Second
	// Bounds how long Wait lingers on stdio held open by grandchildren.
	pipeWaitDelay = 2 * time.Second
)

var (
	ErrBackendNotFound = errors.New("packaged backend not found")
	ErrBackendExited   = errors.New("backend already ran and exited")
)

type Config struct {
	Packaged bool
	Host     string
	Port     string
	DataDir  string
	UIDir    string
	// ResourcesDir holds backend/<exe> and ui/ in packaged builds.
	ResourcesDir string
	// RepoRoot is the working directory of the dev-mode backend.
	RepoRoot string
	ExtraEnv map[string]string

	// Command overrides the spawned program and arguments for either mode.
	Command []string
}

func DefaultExecutableName() string {
	if goruntime.GOOS == "windows" {
		return "wechat-backend.exe"
	}
	return "wechat-backend"
}

// PackagedExecutable is where installers place the bundled backend.
func PackagedExecutable(resourcesDir string) string {
	return filepath.Join(resourcesDir, "backend", DefaultExecutableName())
}

// Handle is a spawned backend process.
type Handle struct {
	cmd  *exec.Cmd
	pid  int
	done chan struct{}

	exitCode   int
	exitSignal string
	waitErr    error
}

func (h *Handle) PID() int {
	if h == nil {
		return 0
	}
	return h.pid
}

// Done is closed once the process has exited and its output is flushed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitStatus is valid after Done is closed.
func (h *Handle) ExitStatus() (code int, signal string, err error) {
	return h.exitCode, h.exitSignal, h.waitErr
}

func (h *Handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Supervisor owns at most one backend process per lifetime.
type Supervisor struct {
	cfg    Config
	logger *logging.Logger

	mu      sync.Mutex
	handle  *Handle
	spawned bool
	onExit  []func(*Handle)
}

func NewSupervisor(cfg Config, logger *logging.Logger) *Supervisor {
	if logger == nil {
		panic("backend.NewSupervisor: logger must not be nil")
	}
	return &Supervisor{cfg: cfg, logger: logger}
}

// OnExit registers fn to run after the backend exits for any reason.
func (s *Supervisor) OnExit(fn func(*Handle)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onExit = append(s.onExit, fn)
	s.mu.Unlock()
}

// Start spawns the backend. Later calls return the live handle, or
// ErrBackendExited once that process is gone; the backend is never restarted.
func (s *Supervisor) Start() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return s.handle, nil
	}
	if s.spawned {
		return nil, ErrBackendExited
	}

	cmd, stdio, err := s.buildCommand()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		stdio.Close()
		return nil, fmt.Errorf("start backend: %w", err)
	}

	stdio.started()

	handle := &Handle{cmd: cmd, pid: cmd.Process.Pid, done: make(chan struct{})}
	s.handle = handle
	s.spawned = true
	s.logger.Info("backend spawned",
		logging.Field("pid", handle.pid),
		logging.Field("packaged", s.cfg.Packaged),
		logging.Field("command", strings.Join(cmd.Args, " ")),
		logging.Field("dir", cmd.Dir),
	)

	go s.watch(handle, stdio)
	return handle, nil
}

func (s *Supervisor) buildCommand() (*exec.Cmd, *stdioLog, error) {
	args := s.cfg.Command
	dir := s.cfg.RepoRoot
	if s.cfg.Packaged {
		if len(args) == 0 {
			exe := PackagedExecutable(s.cfg.ResourcesDir)
			if _, err := os.Stat(exe); err != nil {
				return nil, nil, fmt.Errorf("%w: %s", ErrBackendNotFound, exe)
			}
			args = []string{exe}
		}
		dir = s.cfg.DataDir
	} else if len(args) == 0 {
		args = []string{"uv", "run", "main.py"}
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = buildEnv(os.Environ(), s.cfg)
	cmd.WaitDelay = pipeWaitDelay
	configureProcAttr(cmd)

	if !s.cfg.Packaged {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd, nil, nil
	}

	stdio, err := openStdioLog(s.cfg.DataDir)
	if err != nil {
		// Output is dropped rather than blocking startup.
		s.logger.Warn("failed to open backend stdio log", logging.Field("error", err))
	}
	cmd.Stdout = stdio.Writer("backend:stdout")
	cmd.Stderr = stdio.Writer("backend:stderr")
	return cmd, stdio, nil
}

func (s *Supervisor) watch(handle *Handle, stdio *stdioLog) {
	err := handle.cmd.Wait()
	code := -1
	signal := ""
	if state := handle.cmd.ProcessState; state != nil {
		code = state.ExitCode()
		signal = exitSignal(state)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		handle.waitErr = err
		stdio.Linef("backend:error", "%v", err)
	}
	handle.exitCode = code
	handle.exitSignal = signal
	stdio.Linef("backend:close", "code=%d signal=%s", code, signalOrNone(signal))
	stdio.Close()

	s.mu.Lock()
	if s.handle == handle {
		s.handle = nil
	}
	hooks := append([]func(*Handle){}, s.onExit...)
	s.mu.Unlock()

	s.logger.Info("backend exited",
		logging.Field("pid", handle.pid),
		logging.Field("code", code),
		logging.Field("signal", signalOrNone(signal)),
	)
	close(handle.done)
	for _, hook := range hooks {
		hook(handle)
	}
}

// Handle returns the live backend, or nil before spawn and after exit.
func (s *Supervisor) Handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (s *Supervisor) Running() bool {
	return s.Handle() != nil
}

// Stop terminates the backend and its children. It returns without waiting
// for the exit and is safe to call at any time, any number of times.
func (s *Supervisor) Stop() {
	handle := s.Handle()
	if handle == nil || handle.exited() {
		return
	}
	s.logger.Info("stopping backend", logging.Field("pid", handle.pid))

	if err := terminateTree(handle.pid, killTreeTimeout); err != nil {
		s.logger.Warn("backend tree kill failed", logging.Field("pid", handle.pid), logging.Field("error", err))
	}
	if err := directKill(handle.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Debug("backend direct kill failed", logging.Field("pid", handle.pid), logging.Field("error", err))
	}
	go s.escalate(handle)
}

func signalOrNone(signal string) string {
	if signal == "" {
		return "null"
	}
	return signal
}
