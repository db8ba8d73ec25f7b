//go:build windows

package update

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

type platformInstaller struct{}

// PlatformInstaller runs the downloaded NSIS installer detached, asking it to
// relaunch the app when done.
func PlatformInstaller() Installer {
	return platformInstaller{}
}

func (platformInstaller) Install(path string) error {
	cmd := exec.Command(path, "--updated", "--force-run")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch installer: %w", err)
	}
	return cmd.Process.Release()
}
