//go:build !windows

package backend

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"wechat-desktop/internal/logging"
)

const killGrace = 5 * time.Second

// The backend leads its own process group so workers it forks are signalled
// with it.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateTree(pid int, _ time.Duration) error {
	return unix.Kill(-pid, unix.SIGTERM)
}

func directKill(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}

// escalate force-kills the group if SIGTERM was ignored.
func (s *Supervisor) escalate(handle *Handle) {
	timer := time.NewTimer(killGrace)
	defer timer.Stop()
	select {
	case <-handle.done:
		return
	case <-timer.C:
	}
	s.logger.Warn("backend ignored SIGTERM, killing", logging.Field("pid", handle.pid))
	_ = unix.Kill(-handle.pid, unix.SIGKILL)
	_ = handle.cmd.Process.Kill()
}

func exitSignal(state *os.ProcessState) string {
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return ""
	}
	return unix.SignalName(status.Signal())
}
