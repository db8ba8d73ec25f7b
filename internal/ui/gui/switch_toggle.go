//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

var (
	switchSize     = fyne.NewSize(44, 24)
	switchOffColor = color.NRGBA{R: 115, G: 115, B: 115, A: 255}
	switchInset    = float32(2)
)

// switchToggle is an on/off switch. Tapping flips it and reports the new
// value.
type switchToggle struct {
	widget.DisableableWidget

	on        bool
	onChanged func(bool)

	track *canvas.Rectangle
	knob  *canvas.Circle
}

func newSwitchToggle(on bool, onChanged func(bool)) *switchToggle {
	s := &switchToggle{
		on:        on,
		onChanged: onChanged,
		track:     canvas.NewRectangle(switchOffColor),
		knob:      canvas.NewCircle(color.White),
	}
	s.ExtendBaseWidget(s)
	return s
}

func (s *switchToggle) Tapped(*fyne.PointEvent) {
	if s.Disabled() {
		return
	}
	s.on = !s.on
	s.Refresh()
	if s.onChanged != nil {
		s.onChanged(s.on)
	}
}

func (s *switchToggle) MinSize() fyne.Size {
	return switchSize
}

func (s *switchToggle) CreateRenderer() fyne.WidgetRenderer {
	return &switchRenderer{s: s}
}

type switchRenderer struct {
	s *switchToggle
}

func (r *switchRenderer) Layout(size fyne.Size) {
	track := fyne.NewSize(max(size.Width, switchSize.Width), min(max(size.Height, 16), switchSize.Height))
	r.s.track.CornerRadius = track.Height / 2
	r.s.track.Resize(track)
	r.s.track.Move(fyne.NewPos(0, 0))

	knob := max(track.Height-2*switchInset, 10)
	x := switchInset
	if r.s.on {
		x = track.Width - knob - switchInset
	}
	r.s.knob.Resize(fyne.NewSquareSize(knob))
	r.s.knob.Move(fyne.NewPos(x, (track.Height-knob)/2))
}

func (r *switchRenderer) MinSize() fyne.Size {
	return switchSize
}

func (r *switchRenderer) Refresh() {
	r.Layout(r.s.Size())
	switch {
	case r.s.Disabled():
		r.s.track.FillColor = theme.Color(theme.ColorNameDisabledButton)
		r.s.knob.FillColor = theme.Color(theme.ColorNameDisabled)
	case r.s.on:
		r.s.track.FillColor = theme.Color(theme.ColorNamePrimary)
		r.s.knob.FillColor = theme.Color(theme.ColorNameForeground)
	default:
		r.s.track.FillColor = switchOffColor
		r.s.knob.FillColor = theme.Color(theme.ColorNameForeground)
	}
	canvas.Refresh(r.s.track)
	canvas.Refresh(r.s.knob)
}

func (r *switchRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.s.track, r.s.knob}
}

func (r *switchRenderer) Destroy() {}
