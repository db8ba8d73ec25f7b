package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/config"
	"wechat-desktop/internal/instance"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/ui/gui"
	"wechat-desktop/internal/ui/headless"

	flags "github.com/jessevdk/go-flags"
)

// Set with -ldflags "-X main.BuildVersion=... -X main.BuildMode=packaged".
var (
	BuildVersion = "dev"
	BuildMode    = config.BuildModeDev
)

const focusRelayTimeout = 3 * time.Second

func main() {
	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	opts, err := config.ParseOptions()
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	useGUI := gui.Available() && !opts.Headless

	logger := logging.New(opts.Debug)
	if logger == nil {
		panic("main: logging.New returned nil")
	}
	logger.SetDebugEnabled(opts.Debug)

	stateDir, err := instance.DefaultStateDir(config.AppName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to resolve state directory:", err)
		os.Exit(2)
	}
	gate, lockedByOther, lockErr := instance.Acquire(stateDir, logger)
	if lockErr != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize single-instance lock:", lockErr)
		os.Exit(2)
	}
	if lockedByOther {
		os.Exit(handleSecondInstance(rootCtx, stateDir, useGUI))
	}
	defer func() {
		if releaseErr := gate.Release(); releaseErr != nil {
			logger.Warn("failed to release instance lock", logging.Field("error", releaseErr))
		}
	}()

	dataDir, ok := config.NewDataDirResolver(opts.DataDir).Resolve()
	if ok {
		if err := logger.EnableFilePersistence(dataDir); err != nil {
			logger.Warn("failed to enable file log persistence", logging.Field("error", err))
		}
	} else {
		logger.Warn("no writable data directory; file logging disabled")
	}
	defer func() {
		_ = logger.Close()
	}()

	cfg := app.Config{
		Options:  opts,
		Version:  BuildVersion,
		Packaged: opts.Packaged(strings.TrimSpace(BuildMode)),
		DataDir:  dataDir,
		ExeDir:   executableDir(),
	}
	attach := func(shell *app.App) {
		err := shell.Go("focus relay", func(ctx context.Context) error {
			return gate.ServeFocus(ctx, shell.Focus)
		})
		if err != nil {
			logger.Warn("failed to serve focus requests", logging.Field("error", err))
		}
	}

	var runErr error
	if useGUI {
		hideAndDetachConsoleForGUI()
		runErr = gui.Run(rootCtx, cfg, logger, attach)
	} else {
		runErr = headless.Run(rootCtx, cfg, logger, attach)
	}
	if runErr != nil {
		logger.Error("desktop shell exited with an error", logging.Field("error", runErr))
		if !useGUI {
			fmt.Fprintln(os.Stderr, runErr)
		}
		_ = logger.Close()
		_ = gate.Release()
		os.Exit(1)
	}
}

// handleSecondInstance asks the running copy to show itself and returns the
// exit code for this one.
func handleSecondInstance(ctx context.Context, stateDir string, useGUI bool) int {
	ctx, cancel := context.WithTimeout(ctx, focusRelayTimeout)
	defer cancel()
	if err := instance.SignalPrimary(ctx, stateDir); err == nil {
		return 0
	}
	if useGUI {
		hideAndDetachConsoleForGUI()
		showAlreadyRunningDialog()
	} else {
		fmt.Fprintln(os.Stderr, config.AppName+" is already running.")
	}
	return 1
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
