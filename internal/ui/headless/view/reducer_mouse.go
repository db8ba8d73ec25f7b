package view

import (
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

// ReduceMouse scrolls the log pane, tracks the hovered control and turns
// left clicks on marked zones into effects.
func ReduceMouse(state State, msg tea.MouseMsg) (State, tea.Cmd, Effect) {
	var cmd tea.Cmd
	if state.ShowLogs && !state.ModalOpen() {
		state.LogView, cmd = state.LogView.Update(msg)
		state.FollowLogs = state.LogView.AtBottom()
	}

	if msg.Action == tea.MouseActionMotion {
		state.HoverZone = hoveredZone(state, msg)
		return state, cmd, EffectNone
	}
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return state, cmd, EffectNone
	}

	switch {
	case state.ErrorModalText != "" || state.InfoModalText != "":
		if inZone(zoneDialogDismiss, msg) {
			state.ErrorModalText = ""
			state.InfoModalText = ""
		}
		return state, cmd, EffectNone
	case state.Prompt.Open:
		for i := range state.Prompt.ChoiceCount() {
			if inZone(zonePromptChoice(i), msg) {
				next, effect := ReducePromptChoice(state, i)
				return next, cmd, effect
			}
		}
		return state, cmd, EffectNone
	case state.FilePickerOpen:
		return state, cmd, EffectNone
	}

	for i := range actionCount {
		if inZone(zoneAction(i), msg) {
			next, effect := ReduceActivate(state, i)
			return next, cmd, effect
		}
	}
	return state, cmd, EffectNone
}

func hoveredZone(state State, msg tea.MouseMsg) string {
	if state.Prompt.Open {
		for i := range state.Prompt.ChoiceCount() {
			if id := zonePromptChoice(i); inZone(id, msg) {
				return id
			}
		}
		return ""
	}
	if state.ModalOpen() {
		return ""
	}
	for i := range actionCount {
		if id := zoneAction(i); inZone(id, msg) {
			return id
		}
	}
	return ""
}

func inZone(id string, msg tea.MouseMsg) bool {
	info := zone.Get(id)
	return info != nil && info.InBounds(msg)
}
