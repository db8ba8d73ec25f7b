package backend

import (
	"path/filepath"
	"sort"
	"strings"
)

// buildEnv overlays the backend settings on base, a KEY=VALUE list.
func buildEnv(base []string, cfg Config) []string {
	values := map[string]string{}
	order := make([]string, 0, len(base))
	for _, entry := range base {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = value
	}
	set := func(key, value string) {
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = value
	}

	extraKeys := make([]string, 0, len(cfg.ExtraEnv))
	for key := range cfg.ExtraEnv {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		set(key, cfg.ExtraEnv[key])
	}

	set("WECHAT_TOOL_HOST", cfg.Host)
	set("WECHAT_TOOL_PORT", cfg.Port)
	if strings.TrimSpace(values["PYTHONIOENCODING"]) == "" {
		set("PYTHONIOENCODING", "utf-8")
	}
	if cfg.DataDir != "" {
		set("WECHAT_TOOL_DATA_DIR", cfg.DataDir)
	}
	switch {
	case cfg.UIDir != "":
		set("WECHAT_TOOL_UI_DIR", cfg.UIDir)
	case cfg.Packaged && strings.TrimSpace(values["WECHAT_TOOL_UI_DIR"]) == "":
		set("WECHAT_TOOL_UI_DIR", filepath.Join(cfg.ResourcesDir, "ui"))
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, key+"="+values[key])
	}
	return out
}
