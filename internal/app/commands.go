package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wechat-desktop/internal/config"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/runstatus"
	"wechat-desktop/internal/update"
)

const defaultChooseTitle = "Choose folder"

// CheckForUpdates runs a manual check. Manual checks report the available
// version even when it was ignored.
func (a *App) CheckForUpdates(ctx context.Context) (update.CheckResult, error) {
	if a.Updates.Enabled() && a.Status() == runstatus.Ready {
		a.setStatus(runstatus.UpdateChecking)
		defer a.restoreStatus(runstatus.UpdateChecking)
	}
	return a.Updates.Check(ctx, false)
}

// DownloadAndInstall fetches the latest installer. Installing is the separate
// InstallUpdate step.
func (a *App) DownloadAndInstall(ctx context.Context) error {
	if a.Updates.Enabled() && a.Status() == runstatus.Ready {
		a.setStatus(runstatus.Downloading)
		defer a.restoreStatus(runstatus.Downloading)
	}
	return a.Updates.DownloadAndInstall(ctx)
}

func (a *App) InstallUpdate() error {
	return a.Updates.Install()
}

func (a *App) IgnoreUpdate(version string) string {
	return a.Updates.Ignore(strings.TrimSpace(version))
}

func (a *App) GetCloseBehavior() config.CloseBehavior {
	return a.Lifecycle.CloseBehavior()
}

func (a *App) SetCloseBehavior(raw string) config.CloseBehavior {
	return a.Lifecycle.SetCloseBehavior(raw)
}

func (a *App) GetAppVersion() string {
	return a.cfg.Version
}

// ChooseDirectory asks the front end for a folder. done always runs; front
// ends without a chooser report a cancel.
func (a *App) ChooseDirectory(title string, done func(DirectoryChoice)) {
	if done == nil {
		done = func(DirectoryChoice) {}
	}
	if strings.TrimSpace(title) == "" {
		title = defaultChooseTitle
	}
	if a.frontEnd.ChooseDirectory == nil {
		done(DirectoryChoice{Canceled: true})
		return
	}
	a.frontEnd.ChooseDirectory(title, func(choice DirectoryChoice) {
		if choice.Paths == nil {
			choice.Paths = []string{}
		}
		done(choice)
	})
}

// ExportLogs copies the shell and backend logs into dir and returns the
// written paths. Missing logs are skipped.
func (a *App) ExportLogs(dir string) ([]string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("export directory is empty")
	}
	var written []string
	for _, src := range a.LogFiles() {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return written, fmt.Errorf("export %s: %w", filepath.Base(src), err)
		}
		written = append(written, dst)
	}
	a.logger.Info("logs exported", logging.Field("dir", dir), logging.Field("count", len(written)))
	return written, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
