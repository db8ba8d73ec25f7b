package view

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"wechat-desktop/internal/ui/headless/theme"
)

const (
	DefaultNonLogLayoutReserveMin = 20
	DefaultMinLogPanelHeight      = 8
)

const (
	minPageWidth            = 24
	logPanelHorizontalInset = 6
	minViewportDimension    = 1
	minLogViewportWidth     = 20
	logViewportHeightOffset = 3
	minLogViewportHeight    = 3
	panelFrameOverhead      = 4
	filePickerHeightOffset  = 14
	minFilePickerHeight     = 8
	borderRows              = 2
	sectionGapRows          = 2
	progressInset           = 6
	minProgressWidth        = 10
	maxProgressWidth        = 80
)

func (s State) ContentWidth() int {
	width := max(s.Width, 1)
	// Some Windows terminals wrap when a styled line lands exactly on the
	// reported last column.
	if runtime.GOOS == "windows" && width > 1 {
		width--
	}
	return width
}

func (s State) PageWidth() int {
	return max(s.ContentWidth()-theme.PanelStyle.GetHorizontalFrameSize(), minPageWidth)
}

func (s State) LogPanelHeight(nonLogLayoutReserveMin int, minLogPanelHeight int) int {
	available := s.Height - nonLogLayoutReserveMin
	if available < minLogPanelHeight {
		return minLogPanelHeight
	}
	return available
}

func (s *State) SetLogViewportContent() {
	width := max(s.LogView.Width, minViewportDimension)
	s.LogView.SetContent(wrapLogText(s.LogText, width))
}

func (s *State) ResizeLogs(nonLogLayoutReserveMin int, minLogPanelHeight int) {
	s.LogView.Width = max(s.PageWidth()-logPanelHorizontalInset, minLogViewportWidth)
	s.LogView.Height = max(s.LogPanelHeight(nonLogLayoutReserveMin, minLogPanelHeight)-logViewportHeightOffset, minLogViewportHeight)
	s.SetLogViewportContent()
}

// FitLogViewportHeight shrinks the log viewport so the whole page fits the
// terminal.
func (s *State) FitLogViewportHeight(nonLogSections []string, nonLogLayoutReserveMin int, minLogPanelHeight int) {
	if s.Height <= 0 {
		return
	}
	desired := max(s.LogPanelHeight(nonLogLayoutReserveMin, minLogPanelHeight)-logViewportHeightOffset, minLogViewportHeight)
	nonLogHeight := lipgloss.Height(strings.Join(nonLogSections, "\n\n"))
	availablePanel := s.Height - borderRows - nonLogHeight - sectionGapRows
	maxLogHeight := max(availablePanel-panelFrameOverhead, minLogViewportHeight)
	s.LogView.Height = min(desired, maxLogHeight)
}

func (s *State) ResizeFilePicker() {
	s.FilePicker.SetHeight(max(s.Height-filePickerHeightOffset, minFilePickerHeight))
}

func (s *State) ResizeProgress() {
	s.Progress.Width = min(max(s.PageWidth()-progressInset, minProgressWidth), maxProgressWidth)
}

// AppendLogs adds text to the log pane, following the tail when the pane was
// already at the bottom.
func (s *State) AppendLogs(text string, limit int) {
	wasAtBottom := s.LogView.AtBottom()
	s.LogText = AppendLogLinesWithLimit(s.LogText, text, limit)
	s.SetLogViewportContent()
	if s.FollowLogs || wasAtBottom {
		s.LogView.GotoBottom()
		s.FollowLogs = true
	}
}

// WithProgress shows fraction on the progress bar; a negative value hides
// it.
func (s State) WithProgress(fraction float64, detail string) State {
	if fraction < 0 {
		s.ProgressShown = false
		s.ProgressValue = 0
		s.ProgressDetail = ""
		return s
	}
	s.ProgressShown = true
	s.ProgressValue = min(fraction, 1)
	if detail != "" {
		s.ProgressDetail = detail
	}
	return s
}

func (s State) WithUpdatePrompt(version, notes string, downloaded bool) State {
	s.Prompt = UpdatePrompt{
		Open:       true,
		Version:    strings.TrimSpace(version),
		Notes:      strings.TrimSpace(notes),
		Downloaded: downloaded,
		Choice:     PromptChoiceLater,
	}
	if downloaded {
		s.Prompt.Choice = PromptChoiceInstall
	}
	return s
}

// WithFilePicker opens the directory picker at startDir.
func (s State) WithFilePicker(title, startDir string) State {
	if abs, err := filepath.Abs(startDir); err == nil {
		startDir = abs
	}
	s.FilePicker.CurrentDirectory = startDir
	s.FilePicker.Path = ""
	s.FilePickerTitle = title
	s.FilePickerOpen = true
	s.ResizeFilePicker()
	return s
}

func AppendLogLinesWithLimit(current string, next string, limit int) string {
	if limit <= 0 {
		return ""
	}
	lines := SplitLogLines(current)
	lines = append(lines, SplitLogLines(next)...)
	if len(lines) > limit {
		lines = append([]string(nil), lines[len(lines)-limit:]...)
	}
	return strings.Join(lines, "\n")
}

func SplitLogLines(input string) []string {
	if input == "" {
		return nil
	}
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func wrapLogText(text string, width int) string {
	if width <= 0 || text == "" {
		return text
	}
	return ansi.Wrap(text, width, "")
}
