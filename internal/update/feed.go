package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	goruntime "runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"wechat-desktop/internal/logging"
)

const (
	// FeedConfigFileName is written next to the app resources by the packager.
	FeedConfigFileName = "app-update.yml"
	maxManifestBytes   = 1 << 20
	userAgent          = "wechat-desktop-updater"
)

// Release describes the newest version a feed offers.
type Release struct {
	Version     string
	Notes       any
	ReleaseDate string
	Files       []File
}

type File struct {
	URL    string
	SHA512 string
	Size   int64
}

// Feed reports the latest published release.
type Feed interface {
	Latest(ctx context.Context) (Release, error)
}

// StatusError is a non-2xx answer from the update server.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("update server returned %d for %s", e.Status, e.URL)
	}
	return fmt.Sprintf("update server returned %d for %s: %s", e.Status, e.URL, e.Body)
}

// FeedConfig mirrors the app-update.yml written by electron-builder.
type FeedConfig struct {
	Provider string `yaml:"provider"`
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	URL      string `yaml:"url"`
	Channel  string `yaml:"channel"`
	// APIBase overrides https://api.github.com for GitHub Enterprise hosts.
	APIBase string `yaml:"host"`
}

func LoadFeedConfig(path string) (FeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FeedConfig{}, err
	}
	var cfg FeedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FeedConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// NewFeed builds the feed implementation named by cfg.Provider.
func NewFeed(cfg FeedConfig, httpClient *http.Client, logger *logging.Logger) (Feed, error) {
	if logger == nil {
		panic("update.NewFeed: logger must not be nil")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "github":
		if cfg.Owner == "" || cfg.Repo == "" {
			return nil, errors.New("github update feed needs owner and repo")
		}
		return &GitHubFeed{
			Owner:   cfg.Owner,
			Repo:    cfg.Repo,
			APIBase: githubAPIBase(cfg.APIBase),
			Channel: cfg.Channel,
			http:    httpClient,
			logger:  logger,
		}, nil
	case "generic":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("generic update feed needs url")
		}
		return &GenericFeed{BaseURL: cfg.URL, Channel: cfg.Channel, http: httpClient, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported update provider %q", cfg.Provider)
	}
}

func githubAPIBase(host string) string {
	host = strings.TrimSpace(host)
	if host == "" || host == "github.com" {
		return "https://api.github.com"
	}
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + host + "/api/v3"
}

// channelFileName follows electron-builder naming: latest.yml on Windows,
// latest-mac.yml and latest-linux.yml elsewhere.
func channelFileName(channel string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "latest"
	}
	switch goruntime.GOOS {
	case "darwin":
		return channel + "-mac.yml"
	case "linux":
		return channel + "-linux.yml"
	default:
		return channel + ".yml"
	}
}

type manifestFile struct {
	URL    string `yaml:"url"`
	SHA512 string `yaml:"sha512"`
	Size   int64  `yaml:"size"`
}

type manifest struct {
	Version      string         `yaml:"version"`
	Files        []manifestFile `yaml:"files"`
	Path         string         `yaml:"path"`
	SHA512       string         `yaml:"sha512"`
	ReleaseDate  string         `yaml:"releaseDate"`
	ReleaseNotes any            `yaml:"releaseNotes"`
}

// parseManifest reads a latest*.yml document. Relative file URLs are resolved
// by resolve.
func parseManifest(data []byte, resolve func(string) string) (Release, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Release{}, fmt.Errorf("parse update manifest: %w", err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return Release{}, errors.New("update manifest has no version")
	}
	rel := Release{
		Version:     strings.TrimSpace(m.Version),
		Notes:       m.ReleaseNotes,
		ReleaseDate: m.ReleaseDate,
	}
	for _, f := range m.Files {
		if strings.TrimSpace(f.URL) == "" {
			continue
		}
		rel.Files = append(rel.Files, File{URL: resolve(f.URL), SHA512: f.SHA512, Size: f.Size})
	}
	if len(rel.Files) == 0 && m.Path != "" {
		rel.Files = append(rel.Files, File{URL: resolve(m.Path), SHA512: m.SHA512})
	}
	return rel, nil
}

func fetch(ctx context.Context, client *http.Client, rawURL string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, Status: resp.StatusCode, Body: logging.Truncate(string(data))}
	}
	return data, nil
}

func resolveAgainst(base string) func(string) string {
	return func(ref string) string {
		baseURL, err := url.Parse(base)
		if err != nil {
			return ref
		}
		refURL, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return baseURL.ResolveReference(refURL).String()
	}
}

func fileNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(parsed.Path)
}
