// Package theme holds the terminal front end's lipgloss styles.
package theme

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"wechat-desktop/internal/runstatus"
)

var (
	PanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	LinkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	HelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	ModalBackdrop = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	DisabledButtonBorder = lipgloss.Border{
		Top:         "╌",
		Bottom:      "╌",
		Left:        "┊",
		Right:       "┊",
		TopLeft:     "┌",
		TopRight:    "┐",
		BottomLeft:  "└",
		BottomRight: "┘",
	}
	DisabledBorderColor = lipgloss.Color("240")
	DisabledTextColor   = lipgloss.Color("240")

	ButtonStyle                = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder())
	ButtonFocusedStyle         = ButtonStyle.BorderForeground(lipgloss.Color("10")).Foreground(lipgloss.Color("10"))
	ButtonHoverStyle           = ButtonStyle.BorderForeground(lipgloss.Color("15")).Foreground(lipgloss.Color("15"))
	ButtonDisabledStyle        = ButtonStyle.Border(DisabledButtonBorder).BorderForeground(DisabledBorderColor).Foreground(DisabledTextColor)
	ButtonDisabledFocusedStyle = ButtonStyle.BorderForeground(lipgloss.Color("255")).Foreground(lipgloss.Color("250"))
	SegmentBaseStyle           = lipgloss.NewStyle().Padding(0, 1)
	SegmentOnStyle             = SegmentBaseStyle.Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10"))
	SegmentOffStyle            = SegmentBaseStyle.Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236"))
)

// StatusStyle colors a status by its kind.
func StatusStyle(kind runstatus.Kind) lipgloss.Style {
	switch kind {
	case runstatus.KindOK:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case runstatus.KindBusy:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	case runstatus.KindError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
}

// Busy frames cycle through these while the shell is starting or
// downloading.
var busyStops = []string{
	"#07c160", "#2aae67", "#39d3ff", "#4f6bff", "#39d3ff", "#2aae67",
}

func BusySpan() float64 {
	return float64(max(len(busyStops)-1, 1))
}

func BusyColorAt(position float64) string {
	n := float64(len(busyStops))
	if n == 0 {
		return "#ffffff"
	}
	wrapped := math.Mod(position, n)
	if wrapped < 0 {
		wrapped += n
	}
	i0 := int(math.Floor(wrapped))
	i1 := (i0 + 1) % len(busyStops)
	t := wrapped - float64(i0)
	return interpolateHex(busyStops[i0], busyStops[i1], t)
}

func interpolateHex(a string, b string, t float64) string {
	ar, ag, ab := parseHexRGB(a)
	br, bg, bb := parseHexRGB(b)
	lerp := func(x int, y int) int {
		return int(float64(x) + (float64(y)-float64(x))*t)
	}
	return fmt.Sprintf("#%02x%02x%02x", lerp(ar, br), lerp(ag, bg), lerp(ab, bb))
}

func parseHexRGB(s string) (int, int, int) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int((v >> 16) & 0xff), int((v >> 8) & 0xff), int(v & 0xff)
}
