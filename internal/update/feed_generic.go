package update

import (
	"context"
	"net/http"
	"strings"

	"wechat-desktop/internal/logging"
)

// GenericFeed reads latest*.yml from a static file server.
type GenericFeed struct {
	BaseURL string
	Channel string

	http   *http.Client
	logger *logging.Logger
}

func (f *GenericFeed) Latest(ctx context.Context) (Release, error) {
	base := strings.TrimRight(strings.TrimSpace(f.BaseURL), "/") + "/"
	manifestURL := base + channelFileName(f.Channel)
	f.logger.Debug("fetching update manifest", logging.Field("url", manifestURL))

	data, err := fetch(ctx, f.http, manifestURL, "")
	if err != nil {
		return Release{}, err
	}
	return parseManifest(data, resolveAgainst(base))
}
