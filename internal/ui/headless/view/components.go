package view

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"wechat-desktop/internal/runstatus"
	"wechat-desktop/internal/ui/headless/theme"
)

const minComponentWidth = 1

func RenderStatus(status string) string {
	return theme.StatusStyle(runstatus.KindOf(status)).Render(status)
}

// renderButton draws a clickable action button in the style matching its
// focus, hover and enabled state.
func renderButton(state *State, id string, label string, focused bool, enabled bool) string {
	hovered := state.HoverZone == id
	var out string
	switch {
	case !enabled && focused:
		out = theme.ButtonDisabledFocusedStyle.Render(label)
	case !enabled:
		out = theme.ButtonDisabledStyle.Render(label)
	case focused:
		out = theme.ButtonFocusedStyle.Render(label)
	case hovered:
		out = theme.ButtonHoverStyle.Render(label)
	default:
		out = theme.ButtonStyle.Render(label)
	}
	return zone.Mark(id, out)
}

// renderCloseToggle shows the close behavior as a Tray|Exit segment pair.
func renderCloseToggle(state *State, rt Runtime) string {
	tray := theme.SegmentOffStyle.Render("Tray")
	exit := theme.SegmentOffStyle.Render("Exit")
	if rt.CloseToTray {
		tray = theme.SegmentOnStyle.Render("Tray")
	} else {
		exit = theme.SegmentOnStyle.Render("Exit")
	}
	content := "Close: " + tray + theme.SegmentBaseStyle.Render("|") + exit
	return renderButton(state, zoneAction(ActionCloseBehavior), content, state.Focus == ActionCloseBehavior, true)
}

// RenderActionsRow lays segments out left to right, wrapping onto new rows
// at maxWidth.
func RenderActionsRow(segments []string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = minComponentWidth
	}
	lines := make([]string, 0, len(segments))
	rowParts := make([]string, 0, len(segments))
	joinRow := func(parts []string) string {
		if len(parts) == 0 {
			return ""
		}
		row := parts[0]
		for i := 1; i < len(parts); i++ {
			row = lipgloss.JoinHorizontal(lipgloss.Top, row, " ", parts[i])
		}
		return row
	}
	for _, seg := range segments {
		if len(rowParts) == 0 {
			rowParts = append(rowParts, seg)
			continue
		}
		candidateParts := append(append([]string(nil), rowParts...), seg)
		if lipgloss.Width(joinRow(candidateParts)) <= maxWidth {
			rowParts = candidateParts
			continue
		}
		lines = append(lines, joinRow(rowParts))
		rowParts = []string{seg}
	}
	if len(rowParts) > 0 {
		lines = append(lines, joinRow(rowParts))
	}
	return strings.Join(lines, "\n")
}

// BusyTitle renders value bold, with a moving color wave while animated.
func BusyTitle(value string, phase int, animated bool) string {
	if !animated {
		return theme.TitleStyle.Render(value)
	}
	runes := []rune(value)
	if len(runes) == 0 {
		return value
	}
	parts := make([]string, 0, len(runes))
	span := theme.BusySpan()
	phaseF := float64(phase)
	for i := range runes {
		t := float64(i) / float64(max(len(runes)-1, 1))
		x := t*span - phaseF*0.14 + math.Sin((float64(i)*0.42)+(phaseF*0.12))*0.85
		color := theme.BusyColorAt(x)
		parts = append(parts, lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(string(runes[i])))
	}
	return strings.Join(parts, "")
}

func WithScrollBar(content string, width int, height int, percent float64) string {
	if height <= 0 {
		return content
	}
	width = max(width, minComponentWidth)
	lines := strings.Split(content, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]

	thumb := min(max(int(percent*float64(height-1)), 0), height-1)
	barInactive := lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render("┊")
	barActive := lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render("▯")

	out := make([]string, 0, height)
	for i := range height {
		bar := barInactive
		if i == thumb {
			bar = barActive
		}
		text := ansi.Cut(lines[i], 0, width)
		if pad := width - ansi.StringWidth(text); pad > 0 {
			text += strings.Repeat(" ", pad)
		}
		out = append(out, text+" "+bar)
	}
	return strings.Join(out, "\n")
}
