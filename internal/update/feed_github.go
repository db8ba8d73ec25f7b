package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	goruntime "runtime"
	"strings"

	"wechat-desktop/internal/logging"
)

// GitHubFeed reads the latest published GitHub release. When the release
// carries an electron-builder manifest asset it is used for file hashes.
type GitHubFeed struct {
	Owner   string
	Repo    string
	APIBase string
	Channel string

	http   *http.Client
	logger *logging.Logger
}

type githubAsset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Body       string        `json:"body"`
	Draft      bool          `json:"draft"`
	Prerelease bool          `json:"prerelease"`
	Published  string        `json:"published_at"`
	Assets     []githubAsset `json:"assets"`
}

func (f *GitHubFeed) Latest(ctx context.Context) (Release, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimRight(f.APIBase, "/"), f.Owner, f.Repo)
	data, err := fetch(ctx, f.http, apiURL, "application/vnd.github+json")
	if err != nil {
		return Release{}, err
	}
	var latest githubRelease
	if err := json.Unmarshal(data, &latest); err != nil {
		return Release{}, fmt.Errorf("decode github release: %w", err)
	}
	if latest.Draft {
		return Release{}, fmt.Errorf("latest github release %s is a draft", latest.TagName)
	}
	f.logger.Debug("fetched latest github release",
		logging.Field("tag", latest.TagName),
		logging.Field("assets", len(latest.Assets)))

	byName := make(map[string]githubAsset, len(latest.Assets))
	for _, asset := range latest.Assets {
		byName[asset.Name] = asset
	}

	if asset, ok := byName[channelFileName(f.Channel)]; ok {
		manifestData, err := fetch(ctx, f.http, asset.DownloadURL, "application/octet-stream")
		if err != nil {
			return Release{}, err
		}
		rel, err := parseManifest(manifestData, func(ref string) string {
			if a, ok := byName[fileNameFromURL(ref)]; ok {
				return a.DownloadURL
			}
			return resolveAgainst(asset.DownloadURL)(ref)
		})
		if err != nil {
			return Release{}, err
		}
		if rel.Notes == nil && strings.TrimSpace(latest.Body) != "" {
			rel.Notes = latest.Body
		}
		return rel, nil
	}

	rel := Release{
		Version:     strings.TrimPrefix(strings.TrimSpace(latest.TagName), "v"),
		Notes:       latest.Body,
		ReleaseDate: latest.Published,
	}
	for _, asset := range latest.Assets {
		if installerAsset(asset.Name) {
			rel.Files = append(rel.Files, File{URL: asset.DownloadURL, Size: asset.Size})
		}
	}
	return rel, nil
}

func installerAsset(name string) bool {
	lower := strings.ToLower(name)
	switch goruntime.GOOS {
	case "windows":
		return strings.HasSuffix(lower, ".exe")
	case "darwin":
		return strings.HasSuffix(lower, ".dmg") || strings.HasSuffix(lower, ".zip")
	default:
		return strings.HasSuffix(lower, ".appimage")
	}
}
