//go:build !headless

package gui

import (
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"wechat-desktop/internal/logging"
)

const maxLogLines = 1000

// logView is the separate window that shows shell and backend output. All
// methods run on the UI thread.
type logView struct {
	fyneApp fyne.App
	logger  *logging.Logger

	win        fyne.Window
	open       bool
	grid       *widget.TextGrid
	scroll     *container.Scroll
	plain      *widget.Entry
	plainWrap  *container.Scroll
	selectable *widget.Check
	debug      *widget.Check
	follow     *widget.Button

	following bool
	jumping   bool
	raw       []string
}

func newLogView(fyneApp fyne.App, logger *logging.Logger) *logView {
	v := &logView{fyneApp: fyneApp, logger: logger, following: true}

	v.grid = widget.NewTextGrid()
	v.grid.Scroll = fyne.ScrollNone
	v.scroll = container.NewVScroll(v.grid)
	v.scroll.OnScrolled = func(pos fyne.Position) {
		if v.jumping {
			return
		}
		if !v.atBottom(pos) {
			v.setFollowing(false)
		}
	}
	v.plain = widget.NewMultiLineEntry()
	v.plain.Wrapping = fyne.TextWrapWord
	v.plainWrap = container.NewVScroll(v.plain)
	v.plainWrap.Hide()

	v.selectable = widget.NewCheck("Selectable text", func(on bool) {
		if on {
			v.scroll.Hide()
			v.plainWrap.Show()
		} else {
			v.plainWrap.Hide()
			v.scroll.Show()
		}
		v.scrollToBottom()
	})
	v.debug = widget.NewCheck("Debug level", func(on bool) {
		v.logger.SetDebugEnabled(on)
	})
	v.follow = widget.NewButton("Following", func() {
		v.setFollowing(true)
		v.scrollToBottom()
	})
	v.follow.Disable()
	clear := widget.NewButton("Clear", func() {
		v.raw = nil
		v.grid.Rows = nil
		v.grid.Refresh()
		v.plain.SetText("")
	})

	v.win = fyneApp.NewWindow(windowTitle + " Logs")
	v.win.Resize(fyne.NewSize(900, 520))
	header := container.NewBorder(nil, nil, clear, v.follow, container.NewHBox(v.debug, v.selectable, layout.NewSpacer()))
	bg := canvas.NewRectangle(color.NRGBA{A: 255})
	v.win.SetContent(container.NewBorder(header, nil, nil, nil, container.NewStack(bg, v.scroll, v.plainWrap)))
	v.win.SetCloseIntercept(func() {
		v.open = false
		v.win.Hide()
	})
	return v
}

func (v *logView) Show() {
	v.open = true
	v.win.Show()
	v.win.RequestFocus()
	v.resize()
}

// Append adds one event or backend line; text may hold ANSI styling.
func (v *logView) Append(text string) {
	lines := splitLogLines(text)
	if len(lines) == 0 {
		return
	}
	v.raw = append(v.raw, lines...)
	if len(v.raw) > maxLogLines {
		v.raw = append([]string(nil), v.raw[len(v.raw)-maxLogLines:]...)
	}
	if !v.open {
		return
	}
	v.render()
}

// resize rewraps for the current window width.
func (v *logView) resize() {
	v.render()
}

func (v *logView) render() {
	wrapped := wrapANSILines(v.raw, v.wrapColumns())
	if len(wrapped) > maxLogLines {
		wrapped = wrapped[len(wrapped)-maxLogLines:]
	}
	rows := make([]widget.TextGridRow, 0, len(wrapped))
	for _, line := range wrapped {
		rows = append(rows, parseANSITextGridRow(line))
	}
	v.grid.Rows = rows
	v.grid.Refresh()

	plain := make([]string, 0, len(v.raw))
	for _, line := range v.raw {
		plain = append(plain, stripANSIText(line))
	}
	v.plain.SetText(strings.Join(plain, "\n"))
	if v.following {
		v.scrollToBottom()
	}
}

func (v *logView) wrapColumns() int {
	width := v.scroll.Size().Width
	if width <= 0 {
		width = 900
	}
	char := fyne.MeasureText("M", theme.TextSize(), fyne.TextStyle{Monospace: true})
	if char.Width <= 0 {
		return 120
	}
	cols := int(width / char.Width)
	return min(max(cols, 40), 240) - 2
}

func (v *logView) setFollowing(on bool) {
	v.following = on
	if on {
		v.follow.SetText("Following")
		v.follow.Disable()
		return
	}
	v.follow.SetText("Follow")
	v.follow.Enable()
}

func (v *logView) scrollToBottom() {
	v.jumping = true
	if v.selectable.Checked {
		v.plainWrap.ScrollToBottom()
	} else {
		v.scroll.ScrollToBottom()
	}
	v.jumping = false
}

func (v *logView) atBottom(pos fyne.Position) bool {
	content := v.grid.MinSize().Height
	viewport := v.scroll.Size().Height
	if content <= viewport+1 {
		return true
	}
	return pos.Y+viewport >= content-1
}
