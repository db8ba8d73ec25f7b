package update

type State int

const (
	StateIdle State = iota
	StateChecking
	StateNoUpdate
	StateUpdateAvailable
	StateDownloading
	StateDownloaded
	StateInstalling
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateNoUpdate:
		return "up to date"
	case StateUpdateAvailable:
		return "update available"
	case StateDownloading:
		return "downloading"
	case StateDownloaded:
		return "downloaded"
	case StateInstalling:
		return "installing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventUpdateAvailable EventKind = iota + 1
	EventDownloadProgress
	EventUpdateDownloaded
	EventUpdateError
)

// Event is published to the front end. Version and Notes are set for
// available/downloaded, Progress for progress and Message for errors.
type Event struct {
	Kind     EventKind
	Version  string
	Notes    string
	Progress Progress
	Message  string
}

// CheckResult is the outcome of one feed query.
type CheckResult struct {
	Enabled   bool
	HasUpdate bool
	Version   string
	Notes     string
	// Suppressed is set when an automatic check found the ignored version.
	Suppressed bool
	// Downloaded is set when Version is already downloaded and only needs
	// installing.
	Downloaded bool
	Error      string
}
