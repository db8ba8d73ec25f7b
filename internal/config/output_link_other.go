//go:build !windows

package config

import "os"

func createDirLink(target, linkPath string) error {
	return os.Symlink(target, linkPath)
}
