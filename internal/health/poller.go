// Package health blocks startup until the backend answers its health
// endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"wechat-desktop/internal/logging"
)

const (
	HealthPath = "/api/health"

	DefaultStartupTimeout = 30 * time.Second
	DefaultInterval       = 500 * time.Millisecond
	// Kept below DefaultInterval so a hung request cannot delay the next probe.
	DefaultRequestTimeout = 400 * time.Millisecond
)

var ErrNotReady = errors.New("backend not ready")

// TimeoutError reports that the backend stayed unreachable for the whole wait.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Elapsed time.Duration
	Last    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Backend did not become ready in %dms: %s (waited %s)",
		e.Timeout.Milliseconds(), e.URL, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrNotReady
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

type Poller struct {
	URL            string
	Interval       time.Duration
	RequestTimeout time.Duration

	http   *http.Client
	logger *logging.Logger
}

// URLFor builds the health endpoint for a backend bound to host:port.
func URLFor(host, port string) string {
	return "http://" + net.JoinHostPort(host, port) + HealthPath
}

func NewPoller(url string, httpClient *http.Client, logger *logging.Logger) *Poller {
	if logger == nil {
		panic("health.NewPoller: logger must not be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Poller{
		URL:            url,
		Interval:       DefaultInterval,
		RequestTimeout: DefaultRequestTimeout,
		http:           httpClient,
		logger:         logger,
	}
}

// WaitUntilReady polls until the endpoint answers with any status below 500.
// It fails with a *TimeoutError no earlier than timeout, or with the context
// error if ctx ends first.
func (p *Poller) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStartupTimeout
	}
	startedAt := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := 0
	status, err := backoff.Retry(waitCtx, func() (int, error) {
		attempts++
		return p.probe(waitCtx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Interval)),
		backoff.WithMaxElapsedTime(timeout+p.Interval),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Debug("backend not ready yet",
				logging.Field("url", p.URL),
				logging.Field("attempt", attempts),
				logging.Field("error", err),
				logging.Field("next_retry", next.String()))
		}),
	)
	if err == nil {
		p.logger.Info("backend ready",
			logging.Field("url", p.URL),
			logging.Field("status", status),
			logging.Field("elapsed", time.Since(startedAt).Round(time.Millisecond).String()))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	<-waitCtx.Done()
	return &TimeoutError{URL: p.URL, Timeout: timeout, Elapsed: time.Since(startedAt), Last: err}
}

func (p *Poller) probe(ctx context.Context) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.URL, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 500 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("health check status %d", resp.StatusCode)
}
