//go:build !windows

package instance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "desktop.lock"

type processLock struct {
	lock *flock.Flock
}

func (l *processLock) release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock instance lock: %w", err)
	}
	return nil
}

func acquireProcessLock(stateDir string) (*processLock, bool, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create lock directory: %w", err)
	}
	f := flock.New(filepath.Join(stateDir, lockFileName))
	locked, err := f.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, true, nil
	}
	return &processLock{lock: f}, false, nil
}
