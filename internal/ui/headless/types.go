package headless

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"wechat-desktop/internal/app"
	"wechat-desktop/internal/logging"
	"wechat-desktop/internal/update"
	headlessview "wechat-desktop/internal/ui/headless/view"
)

const headlessLogLineLimit = 5_000

type logMsg string
type statusMsg string
type tickMsg struct{}
type quitNowMsg struct{}
type beginQuitMsg struct{}
type checkRequestMsg struct{}

// presentMsg carries the start URL once the backend serves it.
type presentMsg struct {
	url string
}

type startupDoneMsg struct {
	err error
}

type updateEventMsg update.Event

type progressMsg float64

type checkResultMsg struct {
	result update.CheckResult
	err    error
}

type commandDoneMsg struct {
	what string
	err  error
}

// chooseDirMsg opens the folder picker on behalf of app.ChooseDirectory.
type chooseDirMsg struct {
	title string
	done  func(app.DirectoryChoice)
}

type exportDoneMsg struct {
	dir     string
	written []string
	err     error
}

type openURLResultMsg struct {
	url string
	err error
}

type modelDeps struct {
	shell      *app.App
	logger     *logging.Logger
	program    *tea.Program
	rootCtx    context.Context
	rootCancel context.CancelFunc
	unsubs     []func()
	bgWG       sync.WaitGroup
	openURL    func(string) error
	// deliver hands a message to the update loop without blocking.
	deliver func(tea.Msg)
}

type modelChannels struct {
	logCh      chan string
	statusCh   chan string
	progressCh chan float64
}

type modelRuntime struct {
	status   string
	startURL string
	checking bool
	quitting bool
	fatal    error

	pickerDone func(app.DirectoryChoice)
}

type headlessModel struct {
	modelDeps
	modelChannels
	modelRuntime
	cleanupOnce sync.Once
	exitOnce    sync.Once
	ui          headlessview.State
}
