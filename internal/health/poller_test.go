package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"wechat-desktop/internal/logging"
)

func quietLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func fastPoller(url string) *Poller {
	p := NewPoller(url, nil, quietLogger())
	p.Interval = 20 * time.Millisecond
	p.RequestTimeout = 15 * time.Millisecond
	return p
}

func TestWaitUntilReadyAfterServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != HealthPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := fastPoller(srv.URL+HealthPath).WaitUntilReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("WaitUntilReady() error = %v", err)
	}
	if got := hits.Load(); got != 4 {
		t.Fatalf("health hits = %d, want 4", got)
	}
}

func TestWaitUntilReadyAcceptsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := fastPoller(srv.URL+HealthPath).WaitUntilReady(context.Background(), time.Second); err != nil {
		t.Fatalf("a 404 means the backend is listening, got error = %v", err)
	}
}

func TestWaitUntilReadyHungServerTimesOutNotBefore(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	const timeout = 300 * time.Millisecond
	url := srv.URL + HealthPath
	started := time.Now()
	err := fastPoller(url).WaitUntilReady(context.Background(), timeout)
	elapsed := time.Since(started)

	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("WaitUntilReady() error = %v, want ErrNotReady", err)
	}
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
	if elapsed < timeout {
		t.Fatalf("failed after %s, before the %s timeout", elapsed, timeout)
	}
	if !strings.Contains(err.Error(), url) || !strings.Contains(err.Error(), "300ms") {
		t.Fatalf("error %q should name the URL and timeout", err)
	}
	if timeoutErr.Elapsed < timeout {
		t.Fatalf("Elapsed = %s, want at least %s", timeoutErr.Elapsed, timeout)
	}
	waited := "(waited " + timeoutErr.Elapsed.Round(time.Millisecond).String() + ")"
	if !strings.Contains(err.Error(), waited) {
		t.Fatalf("error %q should name the elapsed time %s", err, waited)
	}
}

func TestWaitUntilReadyConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + HealthPath
	srv.Close()

	err := fastPoller(url).WaitUntilReady(context.Background(), 150*time.Millisecond)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("WaitUntilReady() error = %v, want ErrNotReady", err)
	}
}

func TestWaitUntilReadyParentCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	err := fastPoller(srv.URL+HealthPath).WaitUntilReady(ctx, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitUntilReady() error = %v, want context.Canceled", err)
	}
}

func TestURLFor(t *testing.T) {
	if got, want := URLFor("127.0.0.1", "8000"), "http://127.0.0.1:8000/api/health"; got != want {
		t.Fatalf("URLFor() = %q, want %q", got, want)
	}
}
