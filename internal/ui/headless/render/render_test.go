package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"wechat-desktop/internal/ui/headless/theme"
)

func TestTruncateDisplayWidth(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 6, "hello…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
		{"微信数据分析", 5, "微信…"},
	}
	for _, tc := range cases {
		if got := TruncateDisplayWidth(tc.in, tc.width); got != tc.want {
			t.Fatalf("TruncateDisplayWidth(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestFrameKeepsWidthWhenBusy(t *testing.T) {
	plain := Frame("status", 20, false, 0, theme.PanelStyle)
	busy := Frame("status", 20, true, 3, theme.PanelStyle)

	plainLines := strings.Split(plain, "\n")
	busyLines := strings.Split(busy, "\n")
	if len(plainLines) != len(busyLines) {
		t.Fatalf("line count changed: %d vs %d", len(plainLines), len(busyLines))
	}
	for i := range plainLines {
		if ansi.StringWidth(plainLines[i]) != ansi.StringWidth(busyLines[i]) {
			t.Fatalf("line %d width changed: %q vs %q", i, plainLines[i], busyLines[i])
		}
	}
	if ansi.Strip(busy) != ansi.Strip(plain) {
		t.Fatalf("busy frame text differs from plain frame")
	}
}
