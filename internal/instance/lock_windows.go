//go:build windows

package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

type processLock struct {
	handle windows.Handle
}

func (l *processLock) release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	if err != nil {
		return fmt.Errorf("close instance mutex handle: %w", err)
	}
	return nil
}

// The mutex name is derived from the state directory so separate data
// roots (tests, portable installs) do not collide.
func mutexName(stateDir string) string {
	clean := strings.ToLower(filepath.Clean(stateDir))
	replacer := strings.NewReplacer(`\`, "_", "/", "_", ":", "_")
	return `Local\WeChatDesktopInstance_` + replacer.Replace(clean)
}

func acquireProcessLock(stateDir string) (*processLock, bool, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create state directory: %w", err)
	}
	name, err := windows.UTF16PtrFromString(mutexName(stateDir))
	if err != nil {
		return nil, false, fmt.Errorf("encode mutex name: %w", err)
	}
	handle, err := windows.CreateMutex(nil, false, name)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if handle != 0 {
			_ = windows.CloseHandle(handle)
		}
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create instance mutex: %w", err)
	}
	return &processLock{handle: handle}, false, nil
}
