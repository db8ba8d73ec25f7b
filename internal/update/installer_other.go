//go:build !windows

package update

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"syscall"
)

type platformInstaller struct {
	target func() (string, error)
}

// PlatformInstaller swaps the running AppImage (or executable) for the
// download and relaunches it. macOS images are opened for the user instead.
func PlatformInstaller() Installer {
	return platformInstaller{target: currentExecutable}
}

func currentExecutable() (string, error) {
	if appImage := strings.TrimSpace(os.Getenv("APPIMAGE")); appImage != "" {
		return appImage, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}

func (p platformInstaller) Install(path string) error {
	if goruntime.GOOS == "darwin" {
		return exec.Command("open", path).Start()
	}
	target, err := p.target()
	if err != nil {
		return fmt.Errorf("resolve current executable: %w", err)
	}
	if err := replaceFile(path, target); err != nil {
		return err
	}
	cmd := exec.Command(target, os.Args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("relaunch updated app: %w", err)
	}
	return cmd.Process.Release()
}

// replaceFile renames src over dst, copying when they sit on different
// filesystems.
func replaceFile(src, dst string) error {
	if err := os.Chmod(src, 0o755); err != nil {
		return err
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	return copyExecutable(src, dst)
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".new"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("write updated executable: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	_ = os.Remove(src)
	return nil
}
