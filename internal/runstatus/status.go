// Package runstatus names the shell statuses shown by both front ends.
package runstatus

import "strings"

const (
	Starting       = "Starting backend"
	WaitingHealth  = "Waiting for backend"
	Loading        = "Loading UI"
	Ready          = "Ready"
	HiddenToTray   = "Running in tray"
	BackendExited  = "Backend exited"
	Stopping       = "Stopping"
	Failed         = "Startup failed"
	UpdateChecking = "Checking for updates"
	Downloading    = "Downloading update"
)

// Kind groups statuses for badge colors.
type Kind int

const (
	KindIdle Kind = iota
	KindBusy
	KindOK
	KindError
)

func KindOf(status string) Kind {
	switch Key(status) {
	case Key(Ready), Key(HiddenToTray):
		return KindOK
	case Key(Starting), Key(WaitingHealth), Key(Loading), Key(Stopping), Key(UpdateChecking), Key(Downloading):
		return KindBusy
	case Key(BackendExited), Key(Failed):
		return KindError
	default:
		return KindIdle
	}
}

func Key(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
