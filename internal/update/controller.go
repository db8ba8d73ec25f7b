// Package update checks a release feed, downloads new versions and hands
// them to the platform installer.
package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"wechat-desktop/internal/logging"
)

const eventBuffer = 64

var (
	ErrDisabled      = errors.New("auto-update is disabled")
	ErrBusy          = errors.New("an update download is already in progress")
	ErrNotDownloaded = errors.New("update not downloaded yet")
	ErrNoUpdate      = errors.New("no update available")
	ErrNoInstaller   = errors.New("release has no installer for this platform")
)

// IgnoredVersions persists the version the user chose to skip.
type IgnoredVersions interface {
	IgnoredUpdateVersion() string
	SetIgnoredUpdateVersion(version string) string
}

// ProgressSink mirrors download progress onto the window. -1 clears it.
type ProgressSink interface {
	SetProgress(fraction float64)
}

// Notifier shows a short tray/OS notification.
type Notifier interface {
	Notify(title, body string)
}

type Options struct {
	Enabled        bool
	CurrentVersion string
	Feed           Feed
	HTTPClient     *http.Client
	CacheDir       string
	Installer      Installer
	Ignored        IgnoredVersions
	// Quit is called after the installer has been launched.
	Quit func()
}

type Controller struct {
	opts   Options
	logger *logging.Logger
	events chan Event

	mu             sync.Mutex
	state          State
	downloading    bool
	downloaded     bool
	downloadedPath string
	downloadedVer  string
	lastRelease    *Release
	progress       ProgressSink
	notifier       Notifier
}

func NewController(opts Options, logger *logging.Logger) *Controller {
	if logger == nil {
		panic("update.NewController: logger must not be nil")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Installer == nil {
		opts.Installer = PlatformInstaller()
	}
	if opts.Enabled && opts.Feed == nil {
		logger.Warn("auto-update disabled: no update feed configured")
		opts.Enabled = false
	}
	return &Controller{
		opts:   opts,
		logger: logger,
		events: make(chan Event, eventBuffer),
	}
}

func (c *Controller) Enabled() bool {
	return c.opts.Enabled
}

func (c *Controller) CurrentVersion() string {
	return c.opts.CurrentVersion
}

// Events delivers notifications for the front end. It is never closed.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Attach wires the window progress bar and tray notifications once they exist.
func (c *Controller) Attach(progress ProgressSink, notifier Notifier) {
	c.mu.Lock()
	c.progress = progress
	c.notifier = notifier
	c.mu.Unlock()
}

// LastRelease is the release seen by the most recent successful feed query.
func (c *Controller) LastRelease() (Release, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRelease == nil {
		return Release{}, false
	}
	return *c.lastRelease, true
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	if prev != next {
		c.logger.Debug("update state changed", logging.Field("from", prev.String()), logging.Field("to", next.String()))
	}
}

// Check queries the feed. Automatic checks announce an update through Events
// unless it is the ignored version; manual checks only return the result.
// Any difference between the current and latest version counts as an update.
func (c *Controller) Check(ctx context.Context, auto bool) (CheckResult, error) {
	if !c.opts.Enabled {
		return CheckResult{Enabled: false}, nil
	}
	c.mu.Lock()
	if c.downloading || c.state == StateInstalling {
		c.mu.Unlock()
		return CheckResult{Enabled: true}, ErrBusy
	}
	wasDownloaded := c.downloaded
	downloadedVer := c.downloadedVer
	c.state = StateChecking
	c.mu.Unlock()

	rel, err := c.opts.Feed.Latest(ctx)
	if err != nil {
		c.logger.Warn("update check failed", logging.Field("error", err), logging.Field("auto", auto))
		c.mu.Lock()
		c.state = StateError
		c.mu.Unlock()
		if auto {
			c.publish(Event{Kind: EventUpdateError, Message: err.Error()})
		}
		return CheckResult{Enabled: true, Error: err.Error()}, err
	}

	c.mu.Lock()
	c.lastRelease = &rel
	c.mu.Unlock()

	current := c.opts.CurrentVersion
	if rel.Version == "" || current == "" || rel.Version == current {
		c.logger.Debug("update check: no update available",
			logging.Field("current_version", current),
			logging.Field("latest_version", rel.Version))
		if wasDownloaded {
			c.setState(StateDownloaded)
		} else {
			c.setState(StateNoUpdate)
		}
		return CheckResult{Enabled: true}, nil
	}

	result := CheckResult{
		Enabled:   true,
		HasUpdate: true,
		Version:   rel.Version,
		Notes:     NormalizeNotes(rel.Notes),
	}
	c.logger.Info("update available",
		logging.Field("current_version", current),
		logging.Field("latest_version", rel.Version),
		logging.Field("auto", auto))
	if wasDownloaded {
		c.setState(StateDownloaded)
	} else {
		c.setState(StateUpdateAvailable)
	}

	// The installer for this version is already on disk: offer the install,
	// never a second download.
	if wasDownloaded && rel.Version == downloadedVer {
		result.Downloaded = true
		if auto {
			c.logger.Debug("update already downloaded; not announcing again", logging.Field("version", rel.Version))
		}
		return result, nil
	}

	if auto {
		if c.opts.Ignored != nil && c.opts.Ignored.IgnoredUpdateVersion() == rel.Version {
			c.logger.Info("update notification suppressed: version ignored", logging.Field("version", rel.Version))
			result.Suppressed = true
			return result, nil
		}
		c.publish(Event{Kind: EventUpdateAvailable, Version: result.Version, Notes: result.Notes})
	}
	return result, nil
}

// DownloadAndInstall refreshes the release info and downloads it. A second
// call while a download runs fails fast with ErrBusy. Installing is a
// separate step once the download is complete.
func (c *Controller) DownloadAndInstall(ctx context.Context) error {
	if !c.opts.Enabled {
		return ErrDisabled
	}
	c.mu.Lock()
	if c.downloading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state == StateInstalling {
		c.mu.Unlock()
		return ErrBusy
	}
	c.downloading = true
	c.downloaded = false
	c.downloadedPath = ""
	c.downloadedVer = ""
	c.state = StateDownloading
	c.mu.Unlock()
	c.setProgress(0)

	path, rel, err := c.download(ctx)
	if err != nil {
		c.failDownload(err)
		return err
	}

	c.mu.Lock()
	c.downloading = false
	c.downloaded = true
	c.downloadedPath = path
	c.downloadedVer = rel.Version
	c.state = StateDownloaded
	c.mu.Unlock()
	c.setProgress(-1)

	notes := NormalizeNotes(rel.Notes)
	c.logger.Info("update downloaded", logging.Field("version", rel.Version), logging.Field("path", path))
	c.publish(Event{Kind: EventUpdateDownloaded, Version: rel.Version, Notes: notes})
	c.notify("Update downloaded", fmt.Sprintf("Version %s is ready. Restart to install it now or later.", rel.Version))
	return nil
}

func (c *Controller) download(ctx context.Context) (string, Release, error) {
	rel, err := c.opts.Feed.Latest(ctx)
	if err != nil {
		return "", Release{}, err
	}
	c.mu.Lock()
	c.lastRelease = &rel
	c.mu.Unlock()
	if rel.Version == "" || rel.Version == c.opts.CurrentVersion {
		return "", rel, ErrNoUpdate
	}
	if len(rel.Files) == 0 {
		return "", rel, ErrNoInstaller
	}

	c.logger.Info("downloading update", logging.Field("version", rel.Version), logging.Field("url", rel.Files[0].URL))
	path, err := downloadFile(ctx, c.opts.HTTPClient, rel.Files[0], c.opts.CacheDir, func(p Progress) {
		c.publishProgress(p)
		if p.Percent > 0 {
			c.setProgress(min(1, p.Percent/100))
		}
	})
	if err != nil {
		return "", rel, err
	}
	return path, rel, nil
}

func (c *Controller) failDownload(err error) {
	c.mu.Lock()
	c.downloading = false
	c.downloaded = false
	c.state = StateError
	c.mu.Unlock()
	c.setProgress(-1)
	c.logger.Warn("update download failed", logging.Field("error", err))
	c.publish(Event{Kind: EventUpdateError, Message: err.Error()})
}

// Install launches the downloaded installer and quits the app.
func (c *Controller) Install() error {
	if !c.opts.Enabled {
		return ErrDisabled
	}
	c.mu.Lock()
	if !c.downloaded || c.downloadedPath == "" {
		c.mu.Unlock()
		return ErrNotDownloaded
	}
	path := c.downloadedPath
	c.state = StateInstalling
	c.mu.Unlock()

	c.logger.Info("installing update", logging.Field("path", path))
	if err := c.opts.Installer.Install(path); err != nil {
		c.mu.Lock()
		c.state = StateDownloaded
		c.mu.Unlock()
		c.logger.Error("update install failed", logging.Field("error", err))
		return err
	}
	if c.opts.Quit != nil {
		c.opts.Quit()
	}
	return nil
}

// Ignore stores version so automatic checks stop announcing it.
func (c *Controller) Ignore(version string) string {
	if c.opts.Ignored == nil {
		return ""
	}
	stored := c.opts.Ignored.SetIgnoredUpdateVersion(version)
	c.logger.Info("update version ignored", logging.Field("version", stored))
	return stored
}

// RunAutoChecks performs an automatic check after delay and then every
// interval until ctx ends. interval <= 0 disables the repeats.
func (c *Controller) RunAutoChecks(ctx context.Context, delay, interval time.Duration) error {
	if !c.opts.Enabled {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	c.autoCheck(ctx)
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.autoCheck(ctx)
		}
	}
}

func (c *Controller) autoCheck(ctx context.Context) {
	if _, err := c.Check(ctx, true); err != nil && !errors.Is(err, ErrBusy) {
		c.logger.Debug("automatic update check failed", logging.Field("error", err))
	}
}

func (c *Controller) publish(event Event) {
	select {
	case c.events <- event:
	default:
		c.logger.Warn("update event dropped: front end not draining", logging.Field("kind", int(event.Kind)))
	}
}

func (c *Controller) publishProgress(p Progress) {
	select {
	case c.events <- Event{Kind: EventDownloadProgress, Progress: p}:
	default:
	}
}

func (c *Controller) setProgress(fraction float64) {
	c.mu.Lock()
	sink := c.progress
	c.mu.Unlock()
	if sink != nil {
		sink.SetProgress(fraction)
	}
}

func (c *Controller) notify(title, body string) {
	c.mu.Lock()
	notifier := c.notifier
	c.mu.Unlock()
	if notifier != nil {
		notifier.Notify(title, body)
	}
}
