package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"wechat-desktop/internal/config"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/runstatus"
)

// Surface is the front end's window factory.
type Surface interface {
	// OpenWindow creates and shows the main window. It is only called once
	// the backend answers its health check.
	OpenWindow() (Window, error)
	// Present hands the loaded start URL to the window.
	Present(url string) error
}

// Startup spawns the backend, waits for it, opens the window, loads the start
// URL and schedules update checks. Any failure stops the backend and comes
// back as a *FatalError.
func (a *App) Startup(ctx context.Context, surface Surface) error {
	a.logger.Info("shell starting",
		logging.Field("version", a.cfg.Version),
		logging.Field("packaged", a.cfg.Packaged),
		logging.Field("data_dir", a.cfg.DataDir),
		logging.Field("args", strings.Join(os.Args[1:], " ")),
	)
	if a.cfg.Packaged {
		a.ensureOutputLink()
	}

	a.setStatus(runstatus.Starting)
	if _, err := a.Backend.Start(); err != nil {
		return a.fail(StageSpawn, err)
	}

	a.setStatus(runstatus.WaitingHealth)
	if err := a.Health.WaitUntilReady(ctx, a.cfg.HealthTimeout); err != nil {
		return a.fail(StageHealth, err)
	}

	window, err := surface.OpenWindow()
	if err != nil {
		return a.fail(StageWindow, err)
	}
	if window == nil {
		return a.fail(StageWindow, ErrNoWindow)
	}
	a.Lifecycle.AttachWindow(window)

	a.setStatus(runstatus.Loading)
	if err := a.waitForStartURL(ctx); err != nil {
		return a.fail(StageLoad, err)
	}
	if err := surface.Present(a.startURL); err != nil {
		a.logger.Warn("failed to present start URL", logging.Field("url", a.startURL), logging.Field("error", err))
	}
	a.setStatus(runstatus.Ready)

	a.scheduleUpdateChecks()
	return nil
}

func (a *App) ensureOutputLink() {
	created, err := config.EnsureOutputLink(a.cfg.ExeDir, a.cfg.DataDir)
	if err != nil {
		a.logger.Warn("failed to create output link", logging.Field("exe_dir", a.cfg.ExeDir), logging.Field("error", err))
		return
	}
	if created {
		a.logger.Info("created output link", logging.Field("exe_dir", a.cfg.ExeDir))
	}
}

func (a *App) fail(stage string, err error) error {
	a.logger.Error("startup failed", logging.Field("stage", stage), logging.Field("error", err))
	a.setStatus(runstatus.Failed)
	a.Backend.Stop()
	return &FatalError{Stage: stage, DataDir: a.cfg.DataDir, LogFiles: a.LogFiles(), Err: err}
}

// waitForStartURL retries until the start URL answers at all. Any HTTP
// response counts as loaded; only transport failures are retried.
func (a *App) waitForStartURL(ctx context.Context) error {
	url := a.startURL
	attempt := func() (struct{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, a.cfg.LoadInterval*4)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		resp, err := a.cfg.HTTPClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewConstantBackOff(a.cfg.LoadInterval)),
		backoff.WithMaxElapsedTime(a.cfg.LoadTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.logger.Debug("start URL not loaded yet",
				logging.Field("url", url),
				logging.Field("error", err),
				logging.Field("next_retry", next.String()))
		}),
	)
	if err == nil {
		a.logger.Info("start URL loaded", logging.Field("url", url))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return fmt.Errorf("%w: %s", ErrLoadTimeout, url)
}

// scheduleUpdateChecks runs the first automatic check shortly after load and
// then periodically.
func (a *App) scheduleUpdateChecks() {
	if !a.Updates.Enabled() {
		a.logger.Debug("automatic update checks disabled")
		return
	}
	err := a.tasks.Start(updateChecksTask, func(ctx context.Context) error {
		return a.Updates.RunAutoChecks(ctx, a.cfg.UpdateDelay, a.cfg.UpdateInterval)
	}, nil)
	if err != nil {
		a.logger.Warn("failed to schedule update checks", logging.Field("error", err))
	}
}
