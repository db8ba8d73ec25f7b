package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DataDirResolver resolves the writable data directory once and caches it.
type DataDirResolver struct {
	explicit string
	fallback func() (string, error)

	mu       sync.Mutex
	resolved bool
	path     string
}

func NewDataDirResolver(explicit string) *DataDirResolver {
	return &DataDirResolver{
		explicit: strings.TrimSpace(explicit),
		fallback: DefaultDataDir,
	}
}

// DefaultDataDir is the per-user application data directory.
func DefaultDataDir() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, AppName), nil
}

// Resolve returns the data directory, creating it and exporting it as
// WECHAT_TOOL_DATA_DIR. ok is false when no directory can be determined;
// callers then run without file logging.
func (r *DataDirResolver) Resolve() (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return r.path, r.path != ""
	}

	path := r.explicit
	if path == "" {
		path = strings.TrimSpace(os.Getenv(DataDirEnv))
	}
	if path == "" && r.fallback != nil {
		if dir, err := r.fallback(); err == nil {
			path = strings.TrimSpace(dir)
		}
	}
	r.resolved = true
	if path == "" {
		return "", false
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	_ = os.MkdirAll(path, 0o755)
	r.path = path
	_ = os.Setenv(DataDirEnv, path)
	return path, true
}
