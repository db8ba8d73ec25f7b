package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wechat-desktop/internal/logging"
)

// SettingsFileName is the desktop preferences file in the data directory.
const SettingsFileName = "desktop-settings.json"

type CloseBehavior string

const (
	CloseToTray CloseBehavior = "tray"
	CloseToExit CloseBehavior = "exit"
)

// NormalizeCloseBehavior maps anything other than "exit" to tray.
func NormalizeCloseBehavior(raw string) CloseBehavior {
	if strings.ToLower(strings.TrimSpace(raw)) == string(CloseToExit) {
		return CloseToExit
	}
	return CloseToTray
}

type DesktopSettings struct {
	CloseBehavior        CloseBehavior `json:"closeBehavior"`
	IgnoredUpdateVersion string        `json:"ignoredUpdateVersion"`
}

func DefaultDesktopSettings() DesktopSettings {
	return DesktopSettings{CloseBehavior: CloseToTray}
}

// SettingsStore loads desktop-settings.json on first use and writes it back
// on every change. Disk failures are logged; the in-memory value stays
// authoritative for the rest of the session.
type SettingsStore struct {
	path   string
	logger *logging.Logger

	mu       sync.Mutex
	loaded   bool
	settings DesktopSettings
	// Keys written by other tools are carried through rewrites.
	extra map[string]json.RawMessage
}

// NewSettingsStore keeps settings in dataDir. An empty dataDir gives a
// memory-only store.
func NewSettingsStore(dataDir string, logger *logging.Logger) *SettingsStore {
	if logger == nil {
		panic("config.NewSettingsStore: logger must not be nil")
	}
	store := &SettingsStore{logger: logger}
	if strings.TrimSpace(dataDir) != "" {
		store.path = filepath.Join(dataDir, SettingsFileName)
	}
	return store
}

func (s *SettingsStore) Path() string {
	return s.path
}

func (s *SettingsStore) Settings() DesktopSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.settings
}

func (s *SettingsStore) CloseBehavior() CloseBehavior {
	return s.Settings().CloseBehavior
}

// SetCloseBehavior normalizes raw, persists it and returns the stored value.
func (s *SettingsStore) SetCloseBehavior(raw string) CloseBehavior {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.settings.CloseBehavior = NormalizeCloseBehavior(raw)
	s.persistLocked()
	return s.settings.CloseBehavior
}

func (s *SettingsStore) IgnoredUpdateVersion() string {
	return s.Settings().IgnoredUpdateVersion
}

func (s *SettingsStore) SetIgnoredUpdateVersion(version string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.settings.IgnoredUpdateVersion = strings.TrimSpace(version)
	s.persistLocked()
	return s.settings.IgnoredUpdateVersion
}

func (s *SettingsStore) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.settings = DefaultDesktopSettings()
	if s.path == "" {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to load desktop settings", logging.Field("path", s.path), logging.Field("error", err))
		}
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("failed to load desktop settings", logging.Field("path", s.path), logging.Field("error", err))
		return
	}

	var behavior, ignored string
	if value, ok := raw["closeBehavior"]; ok {
		_ = json.Unmarshal(value, &behavior)
		delete(raw, "closeBehavior")
	}
	if value, ok := raw["ignoredUpdateVersion"]; ok {
		_ = json.Unmarshal(value, &ignored)
		delete(raw, "ignoredUpdateVersion")
	}
	s.settings.CloseBehavior = NormalizeCloseBehavior(behavior)
	s.settings.IgnoredUpdateVersion = strings.TrimSpace(ignored)
	if len(raw) > 0 {
		s.extra = raw
	}
}

func (s *SettingsStore) persistLocked() {
	if s.path == "" {
		return
	}
	out := make(map[string]any, len(s.extra)+2)
	for key, value := range s.extra {
		out[key] = value
	}
	out["closeBehavior"] = s.settings.CloseBehavior
	out["ignoredUpdateVersion"] = s.settings.IgnoredUpdateVersion

	payload, err := json.MarshalIndent(out, "", "  ")
	if err == nil {
		if err = os.MkdirAll(filepath.Dir(s.path), 0o755); err == nil {
			err = os.WriteFile(s.path, payload, 0o644)
		}
	}
	if err != nil {
		s.logger.Warn("failed to persist desktop settings", logging.Field("path", s.path), logging.Field("error", err))
	}
}
