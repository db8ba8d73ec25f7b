package logging

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var forceLipglossColorOnce sync.Once

// Log panels render into ANSI-aware widgets even when stderr is not a TTY.
func ensureLipglossColorOutput() {
	forceLipglossColorOnce.Do(func() {
		lipgloss.SetColorProfile(termenv.TrueColor)
	})
}

var (
	ansiTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ansiMsgStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	ansiKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	ansiValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	ansiSepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	ansiBlockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("238")).
			PaddingLeft(1)
)

// FormatEventANSI renders a log event with the pretty console colors. The
// GUI and terminal log panels use it too.
func FormatEventANSI(event Event) string {
	ensureLipglossColorOutput()
	levelLabel, levelStyle := levelBadge(event.Level)
	line := lipgloss.JoinHorizontal(lipgloss.Center,
		ansiTimeStyle.Render(event.Time.Format("15:04:05.000")),
		" ",
		levelStyle.Render(levelLabel),
		" ",
		ansiMsgStyle.Render(event.Message),
	)

	inline, blocks := splitFields(event.Fields)
	if len(inline) > 0 {
		parts := make([]string, 0, len(inline))
		for _, key := range inline {
			parts = append(parts, ansiKeyStyle.Render(key)+ansiSepStyle.Render("=")+ansiValueStyle.Render(compactFieldValue(event.Fields[key])))
		}
		line += "  " + strings.Join(parts, " ")
	}
	for _, key := range blocks {
		body := ansiBlockStyle.Render(strings.Join(blockLines(event.Fields[key]), "\n"))
		line += "\n  " + ansiKeyStyle.Render(key) + ansiSepStyle.Render(":") + "\n" + indentBlock(body, "  ")
	}
	return line + "\n"
}

func indentBlock(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
