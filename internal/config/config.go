package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

const (
	// AppName names the per-user data and config directories.
	AppName = "WeChatDataAnalysis"

	DefaultHost        = "127.0.0.1"
	DefaultPort        = "8000"
	DevFrontendURL     = "http://localhost:3000"
	BuildModePackaged  = "packaged"
	BuildModeDev       = "dev"
	DataDirEnv         = "WECHAT_TOOL_DATA_DIR"
	UIDirEnv           = "WECHAT_TOOL_UI_DIR"
	AutoUpdateEnv      = "AUTO_UPDATE_ENABLED"
	backendEnvFileName = "backend.env"
)

type Options struct {
	Host         string `long:"host" env:"WECHAT_TOOL_HOST" default:"127.0.0.1" description:"Host the backend binds and the shell polls"`
	Port         string `long:"port" env:"WECHAT_TOOL_PORT" default:"8000" description:"Port the backend binds and the shell polls"`
	DataDir      string `long:"data-dir" env:"WECHAT_TOOL_DATA_DIR" description:"Writable data directory (defaults to the per-user app data dir)"`
	UIDir        string `long:"ui-dir" env:"WECHAT_TOOL_UI_DIR" description:"Static UI directory handed to the backend (packaged default: <resources>/ui)"`
	StartURL     string `long:"start-url" env:"DESKTOP_START_URL" description:"Override the URL the window loads"`
	ResourcesDir string `long:"resources-dir" env:"WECHAT_DESKTOP_RESOURCES_DIR" description:"Bundled resources directory (default: <exe dir>/resources)"`
	RepoRoot     string `long:"repo-root" env:"WECHAT_DESKTOP_REPO_ROOT" description:"Repository root used to run the backend from source in dev mode"`
	Dev          bool   `long:"dev" description:"Force development mode (run the backend with uv)"`
	Headless     bool   `long:"headless" env:"WECHAT_DESKTOP_HEADLESS" description:"Run the terminal front end instead of the window (GUI builds only)"`
	AutoUpdate   string `long:"auto-update" env:"AUTO_UPDATE_ENABLED" description:"Enable or disable auto-update (1/true/yes/on, 0/false/no/off)"`
	Debug        bool   `long:"debug" env:"WECHAT_DESKTOP_DEBUG" description:"Enable verbose debug output"`
}

func ParseOptions() (Options, error) {
	_ = godotenv.Load()
	opts := Options{}
	if _, err := flags.Parse(&opts); err != nil {
		return Options{}, err
	}
	opts.normalize()
	return opts, nil
}

func (o *Options) normalize() {
	o.Host = strings.TrimSpace(o.Host)
	if o.Host == "" {
		o.Host = DefaultHost
	}
	o.Port = strings.TrimSpace(o.Port)
	if o.Port == "" {
		o.Port = DefaultPort
	}
	o.DataDir = strings.TrimSpace(o.DataDir)
	o.UIDir = strings.TrimSpace(o.UIDir)
	o.StartURL = strings.TrimSpace(o.StartURL)
}

// Packaged reports whether the binary runs as an installed build. Release
// builds set buildMode via -ldflags; --dev always wins.
func (o Options) Packaged(buildMode string) bool {
	if o.Dev {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(buildMode), BuildModePackaged)
}

func (o Options) BackendAddr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// ResolveStartURL picks the URL the window loads.
func (o Options) ResolveStartURL(packaged bool) string {
	if o.StartURL != "" {
		return o.StartURL
	}
	if packaged {
		return "http://" + o.BackendAddr() + "/"
	}
	return DevFrontendURL
}

func (o Options) ResolveResourcesDir() string {
	if dir := strings.TrimSpace(o.ResourcesDir); dir != "" {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "resources"
	}
	return filepath.Join(filepath.Dir(exe), "resources")
}

func (o Options) ResolveRepoRoot() string {
	if dir := strings.TrimSpace(o.RepoRoot); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	// Dev runs usually start from the desktop/ subfolder.
	if strings.EqualFold(filepath.Base(wd), "desktop") {
		return filepath.Dir(wd)
	}
	return wd
}

// AutoUpdateEnabled applies AUTO_UPDATE_ENABLED when it parses, otherwise
// updates default to on for packaged builds only.
func (o Options) AutoUpdateEnabled(packaged bool) bool {
	if enabled, ok := ParseEnvBool(o.AutoUpdate); ok {
		return enabled
	}
	return packaged
}

// ParseEnvBool accepts the usual truthy and falsy spellings. ok is false for
// empty or unrecognized input.
func ParseEnvBool(raw string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// LoadBackendEnv reads optional KEY=VALUE overrides for the backend from
// backend.env in the data directory. A missing file yields no overrides.
func LoadBackendEnv(dataDir string) (map[string]string, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, nil
	}
	path := filepath.Join(dataDir, backendEnvFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return godotenv.Read(path)
}
