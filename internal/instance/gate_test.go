package instance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wechat-desktop/internal/logging"
)

func quietLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func TestFocusRelayInvokesCallback(t *testing.T) {
	dir := t.TempDir()
	gate, other, err := Acquire(dir, quietLogger())
	if err != nil || other {
		t.Fatalf("Acquire() = (%v, %v)", other, err)
	}
	defer gate.Release()

	focused := make(chan struct{}, 1)
	if err := gate.ServeFocus(context.Background(), func() { focused <- struct{}{} }); err != nil {
		t.Fatalf("ServeFocus() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := SignalPrimary(ctx, dir); err != nil {
		t.Fatalf("SignalPrimary() error = %v", err)
	}
	select {
	case <-focused:
	case <-time.After(3 * time.Second):
		t.Fatalf("focus callback was not invoked")
	}
}

func TestSignalPrimaryWithoutRelay(t *testing.T) {
	err := SignalPrimary(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNoPrimary) {
		t.Fatalf("SignalPrimary() error = %v, want ErrNoPrimary", err)
	}
}

func TestFocusRelayRejectsWrongToken(t *testing.T) {
	dir := t.TempDir()
	gate, _, err := Acquire(dir, quietLogger())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer gate.Release()

	focused := make(chan struct{}, 1)
	if err := gate.ServeFocus(context.Background(), func() { focused <- struct{}{} }); err != nil {
		t.Fatalf("ServeFocus() error = %v", err)
	}

	path := filepath.Join(dir, focusFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	// Keep the port, swap the token.
	forged := []byte(string(data[:len(data)-1-32]) + "00000000000000000000000000000000\n")
	if err := os.WriteFile(path, forged, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := SignalPrimary(context.Background(), dir); !errors.Is(err, ErrNoPrimary) {
		t.Fatalf("SignalPrimary() error = %v, want ErrNoPrimary", err)
	}
	select {
	case <-focused:
		t.Fatalf("focus callback ran for a forged token")
	default:
	}
}

func TestReleaseRemovesPortFileAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	gate, _, err := Acquire(dir, quietLogger())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := gate.ServeFocus(context.Background(), func() {}); err != nil {
		t.Fatalf("ServeFocus() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := gate.Release(); err != nil {
			t.Fatalf("Release() #%d error = %v", i+1, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, focusFileName)); !os.IsNotExist(err) {
		t.Fatalf("port file still present after release, stat err = %v", err)
	}

	again, other, err := Acquire(dir, quietLogger())
	if err != nil || other {
		t.Fatalf("re-Acquire() after release = (%v, %v)", other, err)
	}
	_ = again.Release()
}

func TestSecondAcquireIsLockedByOther(t *testing.T) {
	dir := t.TempDir()
	first, other, err := Acquire(dir, quietLogger())
	if err != nil || other {
		t.Fatalf("first Acquire() = (%v, %v)", other, err)
	}
	defer first.Release()

	second, other, err := Acquire(dir, quietLogger())
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if !other || second != nil {
		t.Fatalf("second Acquire() = (%v, %v), want locked by other", second, other)
	}
}
