package keyboard

import "github.com/charmbracelet/bubbles/key"

type Map struct {
	NextFocus   key.Binding
	PrevFocus   key.Binding
	Activate    key.Binding
	OpenUI      key.Binding
	Check       key.Binding
	Export      key.Binding
	Logs        key.Binding
	Follow      key.Binding
	Quit        key.Binding
	ModalToggle key.Binding
	Dismiss     key.Binding
}

func New() Map {
	return Map{
		NextFocus: key.NewBinding(
			key.WithKeys("tab", "right"),
			key.WithHelp("tab/right", "next"),
		),
		PrevFocus: key.NewBinding(
			key.WithKeys("shift+tab", "left"),
			key.WithHelp("shift+tab/left", "prev"),
		),
		Activate: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter/space", "activate"),
		),
		OpenUI: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open UI"),
		),
		Check: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "check updates"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export logs"),
		),
		Logs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "logs"),
		),
		Follow: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "follow"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ModalToggle: key.NewBinding(
			key.WithKeys("tab", "shift+tab", "left", "right"),
			key.WithHelp("tab/arrows", "choose"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}

func (m Map) ShortHelp() []key.Binding {
	return []key.Binding{m.NextFocus, m.Activate, m.OpenUI, m.Check, m.Export, m.Logs, m.Quit}
}

func (m Map) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.NextFocus, m.PrevFocus, m.Activate},
		{m.OpenUI, m.Check, m.Export},
		{m.Logs, m.Follow, m.Quit},
	}
}
