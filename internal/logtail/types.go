// Package logtail follows the log files in the data directory so the front
// ends can show backend output that never reaches the shell's own logger.
package logtail

import (
	"time"

	"wechat-desktop/internal/logging"
)

// Line is one complete line read from a followed file.
type Line struct {
	Source string
	Path   string
	Text   string
}

type Options struct {
	Dir string
	// Files are base names inside Dir; Source on each Line is the base name.
	Files []string
	// Backlog is how many existing lines to replay when a file is first seen.
	Backlog      int
	RescanPeriod time.Duration
}

type Callbacks struct {
	OnLine  func(Line)
	OnError func(error)
}

// Tailer reads whatever was appended to Path since the last call. Partial
// trailing lines are held back until their newline arrives.
type Tailer struct {
	Path    string
	Offset  int64
	pending []byte
}

type Follower struct {
	opts      Options
	logger    *logging.Logger
	callbacks Callbacks

	tailers map[string]*Tailer
}
