//go:build windows

package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

func hiddenProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{HideWindow: true, CreationFlags: windows.CREATE_NO_WINDOW}
}

func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = hiddenProcAttr()
}

func taskkillPath() string {
	root := os.Getenv("SystemRoot")
	if root == "" {
		root = os.Getenv("WINDIR")
	}
	if root == "" {
		root = `C:\Windows`
	}
	path := filepath.Join(root, "System32", "taskkill.exe")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return "taskkill"
}

// terminateTree runs taskkill /T /F; plain TerminateProcess would leave the
// backend's worker children running.
func terminateTree(pid int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, taskkillPath(), "/pid", strconv.Itoa(pid), "/T", "/F")
	cmd.SysProcAttr = hiddenProcAttr()
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("taskkill timed out after %s", timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("taskkill exit code=%d", exitErr.ExitCode())
	}
	return err
}

func directKill(p *os.Process) error {
	return p.Kill()
}

func (s *Supervisor) escalate(*Handle) {}

func exitSignal(*os.ProcessState) string {
	return ""
}
