package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLoadTimeout = errors.New("failed to load URL in time")
	ErrNoWindow    = errors.New("front end did not create a window")
)

// Startup stages reported by FatalError.
const (
	StageSpawn  = "spawn backend"
	StageHealth = "wait for backend"
	StageWindow = "create window"
	StageLoad   = "load start URL"
)

// FatalError aborts startup. The backend has already been stopped when it is
// returned.
type FatalError struct {
	Stage    string
	DataDir  string
	LogFiles []string
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("startup failed (%s): %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Detail is the message shown in the fatal dialog or printed to stderr.
func (e *FatalError) Detail() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Startup failed: %v", e.Err)
	if e.DataDir != "" {
		fmt.Fprintf(&b, "\n\nSee the log directory:\n%s", e.DataDir)
	}
	if len(e.LogFiles) > 0 {
		fmt.Fprintf(&b, "\n\nFiles: %s", strings.Join(e.LogFiles, " / "))
	}
	return b.String()
}
