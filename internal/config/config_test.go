package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvBool(t *testing.T) {
	tests := []struct {
		raw    string
		want   bool
		wantOK bool
	}{
		{raw: "1", want: true, wantOK: true},
		{raw: " TRUE ", want: true, wantOK: true},
		{raw: "yes", want: true, wantOK: true},
		{raw: "Y", want: true, wantOK: true},
		{raw: "on", want: true, wantOK: true},
		{raw: "0", want: false, wantOK: true},
		{raw: "False", want: false, wantOK: true},
		{raw: "no", want: false, wantOK: true},
		{raw: "n", want: false, wantOK: true},
		{raw: "OFF", want: false, wantOK: true},
		{raw: "", want: false, wantOK: false},
		{raw: "maybe", want: false, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseEnvBool(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("ParseEnvBool(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAutoUpdateEnabledDefaultsToPackaged(t *testing.T) {
	if !(Options{}).AutoUpdateEnabled(true) {
		t.Fatalf("packaged build should default to auto-update on")
	}
	if (Options{}).AutoUpdateEnabled(false) {
		t.Fatalf("dev build should default to auto-update off")
	}
	if (Options{AutoUpdate: "off"}).AutoUpdateEnabled(true) {
		t.Fatalf("explicit off should disable updates in packaged build")
	}
	if !(Options{AutoUpdate: "1"}).AutoUpdateEnabled(false) {
		t.Fatalf("explicit on should enable updates in dev build")
	}
	if (Options{AutoUpdate: "sometimes"}).AutoUpdateEnabled(false) {
		t.Fatalf("unrecognized value should fall back to the packaged default")
	}
}

func TestResolveStartURL(t *testing.T) {
	opts := Options{Host: "127.0.0.1", Port: "8123"}
	if got, want := opts.ResolveStartURL(true), "http://127.0.0.1:8123/"; got != want {
		t.Fatalf("packaged start URL = %q, want %q", got, want)
	}
	if got := opts.ResolveStartURL(false); got != DevFrontendURL {
		t.Fatalf("dev start URL = %q, want %q", got, DevFrontendURL)
	}
	opts.StartURL = "http://localhost:5173"
	if got := opts.ResolveStartURL(true); got != "http://localhost:5173" {
		t.Fatalf("override start URL = %q", got)
	}
}

func TestPackagedHonorsDevFlag(t *testing.T) {
	if !(Options{}).Packaged("packaged") {
		t.Fatalf("packaged build mode should report packaged")
	}
	if (Options{Dev: true}).Packaged("packaged") {
		t.Fatalf("--dev should force development mode")
	}
	if (Options{}).Packaged("dev") {
		t.Fatalf("dev build mode should not report packaged")
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	opts := Options{Host: "  ", Port: "", DataDir: " /tmp/x "}
	opts.normalize()
	if opts.Host != DefaultHost || opts.Port != DefaultPort {
		t.Fatalf("normalize() host/port = %q/%q", opts.Host, opts.Port)
	}
	if opts.DataDir != "/tmp/x" {
		t.Fatalf("normalize() data dir = %q", opts.DataDir)
	}
	if got, want := opts.BackendAddr(), "127.0.0.1:8000"; got != want {
		t.Fatalf("BackendAddr() = %q, want %q", got, want)
	}
}

func TestLoadBackendEnv(t *testing.T) {
	dir := t.TempDir()
	env, err := LoadBackendEnv(dir)
	if err != nil || env != nil {
		t.Fatalf("LoadBackendEnv(missing) = (%v, %v), want (nil, nil)", env, err)
	}

	content := "# backend overrides\nWECHAT_TOOL_LOG_LEVEL=debug\nEXTRA=\"quoted value\"\n"
	if err := os.WriteFile(filepath.Join(dir, backendEnvFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	env, err = LoadBackendEnv(dir)
	if err != nil {
		t.Fatalf("LoadBackendEnv() error = %v", err)
	}
	if env["WECHAT_TOOL_LOG_LEVEL"] != "debug" || env["EXTRA"] != "quoted value" {
		t.Fatalf("LoadBackendEnv() = %#v", env)
	}
}
