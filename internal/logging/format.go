package logging

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const clipLimit = 240

// Truncate flattens value onto one line and clips it for notifications and
// compact log fields.
func Truncate(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	if value == "" {
		return "<empty>"
	}
	if len(value) > clipLimit {
		return value[:clipLimit] + "..."
	}
	return value
}

// FormatEventLine renders an event for plain terminals. Multi-line values
// (backend output, release notes) follow the header as indented blocks.
func FormatEventLine(event Event) string {
	var b strings.Builder
	b.WriteString(event.Time.Format("15:04:05"))
	b.WriteString(" [")
	b.WriteString(levelName(event.Level))
	b.WriteString("] ")
	b.WriteString(event.Message)

	inline, blocks := splitFields(event.Fields)
	for _, key := range inline {
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(compactFieldValue(event.Fields[key]))
	}
	b.WriteString("\n")
	for _, key := range blocks {
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(":\n")
		for _, line := range blockLines(event.Fields[key]) {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func levelName(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "DEBUG"
	case level <= slog.LevelInfo:
		return "INFO"
	case level <= slog.LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// splitFields returns sorted single-line keys and sorted multi-line keys.
func splitFields(fields map[string]any) (inline, blocks []string) {
	if len(fields) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if isBlockValue(fields[key]) {
			blocks = append(blocks, key)
			continue
		}
		inline = append(inline, key)
	}
	return inline, blocks
}

func isBlockValue(value any) bool {
	text, ok := normalizeLogFieldValue(value).(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.TrimRight(text, "\r\n"), "\n")
}

func blockLines(value any) []string {
	text := fmt.Sprint(normalizeLogFieldValue(value))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
