// Package instance keeps a single copy of the desktop shell running and lets
// later launches bring the existing window forward.
package instance

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"wechat-desktop/internal/logging"
)

const (
	focusFileName = "desktop-focus.port"
	focusCommand  = "focus"
	focusAck      = "ok"
	relayTimeout  = 2 * time.Second
)

// ErrNoPrimary means no running instance answered the focus request.
var ErrNoPrimary = errors.New("no running instance answered")

// Gate is held by the primary instance for its whole lifetime.
type Gate struct {
	stateDir string
	lock     *processLock
	logger   *logging.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
	released bool
	wg       sync.WaitGroup
}

// DefaultStateDir is where the lock and focus port file live.
func DefaultStateDir(appName string) (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(root, appName), nil
}

// Acquire takes the instance lock in stateDir. lockedByOther is true when
// another process holds it; the caller must then exit without side effects.
func Acquire(stateDir string, logger *logging.Logger) (gate *Gate, lockedByOther bool, err error) {
	if logger == nil {
		panic("instance.Acquire: logger must not be nil")
	}
	lock, other, err := acquireProcessLock(stateDir)
	if err != nil || other {
		return nil, other, err
	}
	return &Gate{stateDir: stateDir, lock: lock, logger: logger}, false, nil
}

// ServeFocus accepts focus requests from later launches until ctx ends or the
// gate is released. onFocus runs on the accept goroutine.
func (g *Gate) ServeFocus(ctx context.Context, onFocus func()) error {
	if onFocus == nil {
		panic("instance.Gate.ServeFocus: callback must not be nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return errors.New("instance gate already released")
	}
	if g.listener != nil {
		return errors.New("focus relay already running")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for focus requests: %w", err)
	}
	token, err := newToken()
	if err != nil {
		_ = listener.Close()
		return err
	}
	port := listener.Addr().(*net.TCPAddr).Port
	content := strconv.Itoa(port) + " " + token + "\n"
	if err := os.WriteFile(g.focusFilePath(), []byte(content), 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("write focus port file: %w", err)
	}
	g.listener = listener
	done := make(chan struct{})
	g.done = done

	g.wg.Go(func() {
		g.acceptLoop(listener, token, onFocus)
	})
	g.wg.Go(func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = listener.Close()
	})
	return nil
}

func (g *Gate) acceptLoop(listener net.Listener, token string, onFocus func()) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		if handleFocusConn(conn, token) {
			g.logger.Info("second instance requested focus")
			onFocus()
		}
	}
}

func handleFocusConn(conn net.Conn, token string) bool {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(relayTimeout))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return false
	}
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != focusCommand || fields[1] != token {
		return false
	}
	_, _ = conn.Write([]byte(focusAck + "\n"))
	return true
}

// Release closes the relay, removes the port file and drops the lock. Safe to
// call more than once.
func (g *Gate) Release() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return nil
	}
	g.released = true
	listener := g.listener
	g.listener = nil
	if g.done != nil {
		close(g.done)
	}
	g.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
		_ = os.Remove(g.focusFilePath())
	}
	g.wg.Wait()
	return g.lock.release()
}

func (g *Gate) focusFilePath() string {
	return filepath.Join(g.stateDir, focusFileName)
}

// SignalPrimary asks the instance holding the lock in stateDir to show its
// window.
func SignalPrimary(ctx context.Context, stateDir string) error {
	data, err := os.ReadFile(filepath.Join(stateDir, focusFileName))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoPrimary, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return fmt.Errorf("%w: malformed focus port file", ErrNoPrimary)
	}
	port, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("%w: malformed focus port file", ErrNoPrimary)
	}

	dialer := net.Dialer{Timeout: relayTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoPrimary, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(relayTimeout))
	if _, err := fmt.Fprintf(conn, "%s %s\n", focusCommand, fields[1]); err != nil {
		return fmt.Errorf("%w: %v", ErrNoPrimary, err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || strings.TrimSpace(reply) != focusAck {
		return fmt.Errorf("%w: no acknowledgement", ErrNoPrimary)
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate focus token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
