package view

import (
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"wechat-desktop/internal/ui/headless/keyboard"
)

const (
	defaultLogViewWidth  = 80
	defaultLogViewHeight = 12
	defaultProgressWidth = 40
	maxAnimPhaseValue    = 1_000_000_000
)

// Runtime is the shell state a frame is drawn from.
type Runtime struct {
	Version        string
	Status         string
	StartURL       string
	CloseToTray    bool
	UpdatesEnabled bool
	// Checking is set while an update command is in flight.
	Checking bool
}

// UpdatePrompt is the modal offered when a newer version is known.
type UpdatePrompt struct {
	Open    bool
	Version string
	Notes   string
	// Downloaded switches the choices to Install now / Later.
	Downloaded bool
	Choice     int
}

type State struct {
	Keys     keyboard.Map
	HelpView help.Model

	Width     int
	Height    int
	AnimPhase int
	Focus     int
	HoverZone string

	ShowLogs   bool
	FollowLogs bool
	LogText    string
	LogView    viewport.Model

	Progress       progress.Model
	ProgressShown  bool
	ProgressValue  float64
	ProgressDetail string

	Prompt          UpdatePrompt
	ErrorModalText  string
	InfoModalText   string
	FilePickerOpen  bool
	FilePickerTitle string
	FilePicker      filepicker.Model
}

func NewState() State {
	picker := filepicker.New()
	picker.FileAllowed = false
	picker.DirAllowed = true
	picker.ShowHidden = false
	picker.ShowSize = false
	picker.ShowPermissions = false
	picker.KeyMap.Open = key.NewBinding(key.WithKeys(" ", "right", "l"), key.WithHelp("space", "open"))
	picker.KeyMap.Select = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select"))

	helpView := help.New()
	helpView.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	helpView.Styles.FullKey = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	helpView.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpView.Styles.FullDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpView.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpView.Styles.FullSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpView.Styles.Ellipsis = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	bar := progress.New(progress.WithGradient("#07c160", "#39d3ff"), progress.WithoutPercentage())
	bar.Width = defaultProgressWidth

	return State{
		Keys:       keyboard.New(),
		HelpView:   helpView,
		FollowLogs: true,
		LogView:    viewport.New(defaultLogViewWidth, defaultLogViewHeight),
		Progress:   bar,
		FilePicker: picker,
	}
}

func (s State) WithWindowSize(width int, height int) State {
	s.Width = width
	s.Height = height
	return s
}

func (s State) WithTick() State {
	s.AnimPhase++
	if s.AnimPhase > maxAnimPhaseValue {
		s.AnimPhase = 0
	}
	return s
}

// ModalOpen reports whether a dialog currently owns the keyboard.
func (s State) ModalOpen() bool {
	return s.FilePickerOpen || s.ErrorModalText != "" || s.InfoModalText != "" || s.Prompt.Open
}
