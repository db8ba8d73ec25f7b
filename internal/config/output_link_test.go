//go:build !windows

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureOutputLinkCreatesSymlinkOnce(t *testing.T) {
	exeDir := t.TempDir()
	dataDir := t.TempDir()

	created, err := EnsureOutputLink(exeDir, dataDir)
	if err != nil || !created {
		t.Fatalf("EnsureOutputLink() = (%v, %v), want (true, nil)", created, err)
	}
	target, err := os.Readlink(filepath.Join(exeDir, "output"))
	if err != nil {
		t.Fatalf("Readlink() error = %v", err)
	}
	if target != filepath.Join(dataDir, "output") {
		t.Fatalf("link target = %q", target)
	}

	created, err = EnsureOutputLink(exeDir, dataDir)
	if err != nil || created {
		t.Fatalf("second EnsureOutputLink() = (%v, %v), want (false, nil)", created, err)
	}
}

func TestEnsureOutputLinkNeverReplacesExistingEntry(t *testing.T) {
	exeDir := t.TempDir()
	existing := filepath.Join(exeDir, "output")
	if err := os.Mkdir(existing, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	created, err := EnsureOutputLink(exeDir, t.TempDir())
	if err != nil || created {
		t.Fatalf("EnsureOutputLink() = (%v, %v), want (false, nil)", created, err)
	}
	info, err := os.Lstat(existing)
	if err != nil || info.Mode()&os.ModeSymlink != 0 {
		t.Fatalf("existing directory was replaced")
	}
}
