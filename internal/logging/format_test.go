package logging

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFormatEventLineInlineFieldsSorted(t *testing.T) {
	line := FormatEventLine(Event{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
		Level:   0,
		Message: "backend started",
		Fields:  map[string]any{"pid": 42, "exe": "C:\\Program Files\\tool.exe"},
	})
	want := "03:04:05 [INFO] backend started exe=\"C:\\\\Program Files\\\\tool.exe\" pid=42\n"
	if line != want {
		t.Fatalf("FormatEventLine() = %q, want %q", line, want)
	}
}

func TestFormatEventLineMultilineFieldsLast(t *testing.T) {
	line := FormatEventLine(Event{
		Time:    time.Now(),
		Level:   8,
		Message: "backend exited",
		Fields: map[string]any{
			"output": "Traceback (most recent call last):\n  File \"main.py\"\n",
			"code":   1,
		},
	})
	head, rest, ok := strings.Cut(line, "\n")
	if !ok {
		t.Fatalf("expected a block after the header, got %q", line)
	}
	if !strings.HasSuffix(head, "[ERROR] backend exited code=1") {
		t.Fatalf("unexpected header %q", head)
	}
	if rest != "  output:\n    Traceback (most recent call last):\n      File \"main.py\"\n" {
		t.Fatalf("unexpected block %q", rest)
	}
}

func TestErrorFieldsStayInline(t *testing.T) {
	inline, blocks := splitFields(map[string]any{"error": errors.New("dial tcp: refused")})
	if len(inline) != 1 || len(blocks) != 0 {
		t.Fatalf("inline=%v blocks=%v", inline, blocks)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("  \n "); got != "<empty>" {
		t.Fatalf("Truncate(blank) = %q", got)
	}
	if got := Truncate("a\nb"); got != "a b" {
		t.Fatalf("Truncate(multiline) = %q", got)
	}
	long := strings.Repeat("x", clipLimit+10)
	if got := Truncate(long); len(got) != clipLimit+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("Truncate(long) has length %d", len(got))
	}
}
