package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnsureOutputLink makes <dataDir>/output reachable as <exeDir>/output. An
// existing entry at the link path is never replaced.
func EnsureOutputLink(exeDir, dataDir string) (created bool, err error) {
	if strings.TrimSpace(exeDir) == "" || strings.TrimSpace(dataDir) == "" {
		return false, nil
	}
	target := filepath.Join(dataDir, "output")
	linkPath := filepath.Join(exeDir, "output")

	_ = os.MkdirAll(target, 0o755)
	if _, statErr := os.Lstat(linkPath); statErr == nil || !os.IsNotExist(statErr) {
		return false, nil
	}
	if err := createDirLink(target, linkPath); err != nil {
		return false, err
	}
	return true, nil
}
