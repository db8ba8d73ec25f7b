//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	badgeDotSize = float32(12)
	badgeTarget  = float32(24)
)

// statusBadge is the colored dot next to the status text.
type statusBadge struct {
	widget.BaseWidget

	dot *canvas.Circle
}

func newStatusBadge() *statusBadge {
	b := &statusBadge{dot: canvas.NewCircle(statusIdleColor)}
	b.ExtendBaseWidget(b)
	return b
}

func (b *statusBadge) SetColor(fill color.NRGBA) {
	b.dot.FillColor = fill
	b.dot.Refresh()
}

func (b *statusBadge) MinSize() fyne.Size {
	text := fyne.MeasureText("M", theme.TextSize(), fyne.TextStyle{})
	return fyne.NewSize(badgeTarget, max(text.Height, badgeTarget))
}

func (b *statusBadge) CreateRenderer() fyne.WidgetRenderer {
	anchor := canvas.NewRectangle(color.Transparent)
	anchor.SetMinSize(b.MinSize())
	dot := container.NewGridWrap(fyne.NewSize(badgeDotSize, badgeDotSize), b.dot)
	return widget.NewSimpleRenderer(container.NewStack(anchor, container.NewCenter(dot)))
}
