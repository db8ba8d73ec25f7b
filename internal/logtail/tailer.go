package logtail

import (
	"bytes"
	"io"
	"os"
	"strings"
)

const maxBacklogBytes = 64 << 10

// Prime positions the tailer at the end of the file and returns up to
// backlog of the last complete lines already in it.
func (t *Tailer) Prime(backlog int) ([]string, error) {
	file, err := os.Open(t.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	t.Offset = info.Size()
	t.pending = nil
	if backlog <= 0 || info.Size() == 0 {
		return nil, nil
	}

	start := info.Size() - maxBacklogBytes
	if start < 0 {
		start = 0
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(file, info.Size()-start))
	if err != nil {
		return nil, err
	}
	if start > 0 {
		// Drop the cut-off first line.
		if idx := bytes.IndexByte(raw, '\n'); idx >= 0 {
			raw = raw[idx+1:]
		}
	}
	lines, rest := splitLines(raw)
	t.pending = rest
	if len(lines) > backlog {
		lines = lines[len(lines)-backlog:]
	}
	return lines, nil
}

func (t *Tailer) ReadNewLines() ([]string, error) {
	file, err := os.Open(t.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < t.Offset {
		// Truncated or replaced.
		t.Offset = 0
		t.pending = nil
	}
	if info.Size() == t.Offset {
		return nil, nil
	}
	if _, err := file.Seek(t.Offset, io.SeekStart); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(file, info.Size()-t.Offset)); err != nil {
		return nil, err
	}
	t.Offset += int64(buf.Len())

	raw := buf.Bytes()
	if len(t.pending) > 0 {
		raw = append(t.pending, raw...)
		t.pending = nil
	}
	lines, rest := splitLines(raw)
	t.pending = rest
	return lines, nil
}

func splitLines(raw []byte) ([]string, []byte) {
	var lines []string
	for {
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, NormalizeLine(string(raw[:idx])))
		raw = raw[idx+1:]
	}
	if len(raw) == 0 {
		return lines, nil
	}
	return lines, append([]byte(nil), raw...)
}

func NormalizeLine(line string) string {
	line = strings.TrimPrefix(line, "\ufeff")
	return strings.TrimRight(line, "\r")
}
