package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"wechat-desktop/internal/logging"
)

func quietLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

const sampleManifest = `version: 1.3.0
files:
  - url: WeChatDataAnalysis-Setup-1.3.0.exe
    sha512: abc
    size: 1024
path: WeChatDataAnalysis-Setup-1.3.0.exe
sha512: abc
releaseDate: '2026-03-01T10:00:00.000Z'
releaseNotes:
  - version: 1.3.0
    note: <p>Export to HTML</p>
`

func TestGenericFeedLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/updates/"+channelFileName("") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, sampleManifest)
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{Provider: "generic", URL: srv.URL + "/updates"}, srv.Client(), quietLogger())
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	rel, err := feed.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if rel.Version != "1.3.0" {
		t.Fatalf("Version = %q", rel.Version)
	}
	if len(rel.Files) != 1 || rel.Files[0].URL != srv.URL+"/updates/WeChatDataAnalysis-Setup-1.3.0.exe" {
		t.Fatalf("Files = %#v", rel.Files)
	}
	if got := NormalizeNotes(rel.Notes); got != "v1.3.0\nExport to HTML" {
		t.Fatalf("notes = %q", got)
	}
}

func TestGitHubFeedUsesManifestAsset(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/wechat/releases/latest":
			fmt.Fprintf(w, `{
				"tag_name": "v1.3.0",
				"body": "release body",
				"assets": [
					{"name": %q, "browser_download_url": %q},
					{"name": "WeChatDataAnalysis-Setup-1.3.0.exe", "browser_download_url": %q}
				]
			}`, channelFileName(""), srv.URL+"/dl/manifest", srv.URL+"/dl/setup.exe")
		case "/dl/manifest":
			fmt.Fprint(w, "version: 1.3.0\nfiles:\n  - url: WeChatDataAnalysis-Setup-1.3.0.exe\n    sha512: abc\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{Provider: "github", Owner: "acme", Repo: "wechat", APIBase: srv.URL}, srv.Client(), quietLogger())
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	rel, err := feed.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if rel.Version != "1.3.0" || rel.Notes != "release body" {
		t.Fatalf("release = %#v", rel)
	}
	if len(rel.Files) != 1 || rel.Files[0].URL != srv.URL+"/dl/setup.exe" || rel.Files[0].SHA512 != "abc" {
		t.Fatalf("Files = %#v", rel.Files)
	}
}

func TestFeedStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"rate limited"}`)
	}))
	defer srv.Close()

	feed, _ := NewFeed(FeedConfig{Provider: "github", Owner: "a", Repo: "b", APIBase: srv.URL}, srv.Client(), quietLogger())
	_, err := feed.Latest(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusForbidden {
		t.Fatalf("Latest() error = %v, want StatusError 403", err)
	}
}

func TestLoadFeedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), FeedConfigFileName)
	content := "owner: acme\nrepo: wechat\nprovider: github\nupdaterCacheDirName: wechat-updater\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := LoadFeedConfig(path)
	if err != nil {
		t.Fatalf("LoadFeedConfig() error = %v", err)
	}
	if cfg.Provider != "github" || cfg.Owner != "acme" || cfg.Repo != "wechat" {
		t.Fatalf("cfg = %#v", cfg)
	}
	if _, err := LoadFeedConfig(filepath.Join(t.TempDir(), "missing.yml")); !os.IsNotExist(err) {
		t.Fatalf("LoadFeedConfig(missing) error = %v", err)
	}
}

func TestNewFeedRejectsIncompleteConfig(t *testing.T) {
	for _, cfg := range []FeedConfig{
		{Provider: "github", Owner: "acme"},
		{Provider: "generic"},
		{Provider: "s3"},
	} {
		if _, err := NewFeed(cfg, nil, quietLogger()); err == nil {
			t.Fatalf("NewFeed(%#v) succeeded, want error", cfg)
		}
	}
}
