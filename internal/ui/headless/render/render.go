// Package render draws panel frames and width-limited text for the terminal
// front end.
package render

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"wechat-desktop/internal/ui/headless/theme"
)

// Frame draws content inside panelStyle. While busy the border shimmers with
// phase.
func Frame(content string, width int, busy bool, phase int, panelStyle lipgloss.Style) string {
	innerWidth := max(width-panelStyle.GetHorizontalFrameSize(), 1)
	framed := panelStyle.Width(innerWidth).Render(content)
	if !busy {
		return framed
	}
	return shimmerBorders(framed, phase)
}

func shimmerBorders(framed string, phase int) string {
	lines := strings.Split(framed, "\n")
	out := make([]string, len(lines))
	last := len(lines) - 1
	for y, line := range lines {
		if y == 0 || y == last {
			out[y] = colorHorizontalBorder(line, y, phase)
			continue
		}
		out[y] = colorVerticalEdges(line, y, phase)
	}
	return strings.Join(out, "\n")
}

func colorHorizontalBorder(line string, y int, phase int) string {
	var b strings.Builder
	x := 0
	for _, r := range line {
		ch := string(r)
		if isBorderRune(r) {
			ch = colorBorderChar(ch, x, y, phase)
		}
		b.WriteString(ch)
		x++
	}
	return b.String()
}

func colorVerticalEdges(line string, y int, phase int) string {
	first, size := utf8.DecodeRuneInString(line)
	if first != '│' {
		return line
	}
	rightIdx := strings.LastIndex(line, "│")
	if rightIdx <= 0 {
		return line
	}
	rightX := ansi.StringWidth(line[:rightIdx])
	return colorBorderChar("│", 0, y, phase) + line[size:rightIdx] + colorBorderChar("│", rightX, y, phase)
}

func isBorderRune(r rune) bool {
	switch r {
	case '╭', '╮', '╰', '╯', '─', '│':
		return true
	default:
		return false
	}
}

func colorBorderChar(ch string, x int, y int, phase int) string {
	position := float64(x+y)/4.0 - float64(phase)*0.3
	return lipgloss.NewStyle().Foreground(lipgloss.Color(theme.BusyColorAt(position))).Render(ch)
}

// TruncateDisplayWidth cuts value to width terminal cells, ending with an
// ellipsis when it had to cut.
func TruncateDisplayWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(value) <= width {
		return value
	}
	if width == 1 {
		return "…"
	}
	limit := max(width-ansi.StringWidth("…"), 0)
	var b strings.Builder
	current := 0
	for _, r := range value {
		w := ansi.StringWidth(string(r))
		if current+w > limit {
			break
		}
		b.WriteRune(r)
		current += w
	}
	return b.String() + "…"
}
