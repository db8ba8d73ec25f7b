//go:build !headless

package gui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/x/ansi"
)

var (
	gridDefaultFG = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
	gridDefaultBG = color.NRGBA{A: 255}
	gridStyles    = map[string]*widget.CustomTextGridStyle{}

	// xterm's first 16 colors; 16-255 are computed.
	xtermBase = [16]color.NRGBA{
		{0, 0, 0, 255}, {205, 49, 49, 255}, {13, 188, 121, 255}, {229, 229, 16, 255},
		{36, 114, 200, 255}, {188, 63, 188, 255}, {17, 168, 205, 255}, {229, 229, 229, 255},
		{102, 102, 102, 255}, {241, 76, 76, 255}, {35, 209, 139, 255}, {245, 245, 67, 255},
		{59, 142, 234, 255}, {214, 112, 214, 255}, {41, 184, 219, 255}, {255, 255, 255, 255},
	}
	cubeSteps = [6]uint8{0, 95, 135, 175, 215, 255}
)

// sgr is the text style accumulated from SGR escape sequences.
type sgr struct {
	fg, bg       color.NRGBA
	fgSet, bgSet bool
	bold, dim    bool
	reverse      bool
}

func splitLogLines(input string) []string {
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func stripANSIText(input string) string {
	return ansi.Strip(input)
}

func wrapANSILines(lines []string, columns int) []string {
	if columns <= 1 {
		return append([]string(nil), lines...)
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, splitLogLines(ansi.Wrap(line, columns, ""))...)
	}
	return out
}

func parseANSITextGridRow(line string) widget.TextGridRow {
	row := widget.TextGridRow{Cells: make([]widget.TextGridCell, 0, len(line))}
	var state sgr
	for i := 0; i < len(line); {
		if strings.HasPrefix(line[i:], "\x1b[") {
			if end := strings.IndexByte(line[i+2:], 'm'); end >= 0 {
				state = state.apply(line[i+2 : i+2+end])
				i += end + 3
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		if r == utf8.RuneError && size == 1 {
			r = rune(line[i])
		}
		row.Cells = append(row.Cells, widget.TextGridCell{Rune: r, Style: state.style()})
		i += size
	}
	if len(row.Cells) == 0 {
		row.Cells = append(row.Cells, widget.TextGridCell{Rune: ' ', Style: state.style()})
	}
	return row
}

func (s sgr) apply(seq string) sgr {
	if seq == "" {
		return sgr{}
	}
	parts := strings.Split(strings.ReplaceAll(seq, ":", ";"), ";")
	for i := 0; i < len(parts); i++ {
		code, err := strconv.Atoi(parts[i])
		if err != nil {
			continue
		}
		switch {
		case code == 0:
			s = sgr{}
		case code == 1:
			s.bold = true
		case code == 2:
			s.dim = true
		case code == 22:
			s.bold, s.dim = false, false
		case code == 7:
			s.reverse = true
		case code == 27:
			s.reverse = false
		case code == 39:
			s.fgSet = false
		case code == 49:
			s.bgSet = false
		case code >= 30 && code <= 37:
			s.fg, s.fgSet = xtermColor(code-30), true
		case code >= 90 && code <= 97:
			s.fg, s.fgSet = xtermColor(code-90+8), true
		case code >= 40 && code <= 47:
			s.bg, s.bgSet = xtermColor(code-40), true
		case code >= 100 && code <= 107:
			s.bg, s.bgSet = xtermColor(code-100+8), true
		case code == 38 || code == 48:
			c, consumed, ok := extendedColor(parts[i+1:])
			if !ok {
				continue
			}
			if code == 38 {
				s.fg, s.fgSet = c, true
			} else {
				s.bg, s.bgSet = c, true
			}
			i += consumed
		}
	}
	return s
}

// extendedColor reads "5;n" or "2;r;g;b".
func extendedColor(rest []string) (color.NRGBA, int, bool) {
	if len(rest) >= 2 && rest[0] == "5" {
		idx, err := strconv.Atoi(rest[1])
		if err != nil {
			return color.NRGBA{}, 0, false
		}
		return xtermColor(idx), 2, true
	}
	if len(rest) >= 4 && rest[0] == "2" {
		var rgb [3]uint8
		for k := range rgb {
			v, err := strconv.Atoi(rest[k+1])
			if err != nil {
				return color.NRGBA{}, 0, false
			}
			rgb[k] = uint8(min(max(v, 0), 255))
		}
		return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, 4, true
	}
	return color.NRGBA{}, 0, false
}

func xtermColor(index int) color.NRGBA {
	index = min(max(index, 0), 255)
	switch {
	case index < 16:
		return xtermBase[index]
	case index <= 231:
		c := index - 16
		return color.NRGBA{R: cubeSteps[c/36], G: cubeSteps[(c%36)/6], B: cubeSteps[c%6], A: 255}
	default:
		v := uint8(8 + (index-232)*10)
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	}
}

func (s sgr) style() widget.TextGridStyle {
	fg, bg := gridDefaultFG, gridDefaultBG
	if s.fgSet {
		fg = s.fg
	}
	if s.bgSet {
		bg = s.bg
	}
	if s.reverse {
		fg, bg = bg, fg
	}
	if s.dim {
		fg = color.NRGBA{R: uint8(int(fg.R) * 7 / 10), G: uint8(int(fg.G) * 7 / 10), B: uint8(int(fg.B) * 7 / 10), A: fg.A}
	}

	key := fmt.Sprintf("%v|%v|%t", fg, bg, s.bold)
	if cached, ok := gridStyles[key]; ok {
		return cached
	}
	style := &widget.CustomTextGridStyle{
		FGColor:   fg,
		BGColor:   bg,
		TextStyle: fyne.TextStyle{Bold: s.bold, Monospace: true},
	}
	gridStyles[key] = style
	return style
}
