package view

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Overview actions in focus order.
const (
	ActionOpenUI = iota
	ActionCheck
	ActionCloseBehavior
	ActionExport
	ActionLogs
	ActionQuit
	actionCount
)

// Update prompt choices. Install shares the first slot once the update is
// downloaded.
const (
	PromptChoiceUpdate  = 0
	PromptChoiceInstall = 0
	PromptChoiceLater   = 1
	PromptChoiceIgnore  = 2
)

type Effect int

const (
	EffectNone Effect = iota
	EffectRequestQuit
	EffectOpenUI
	EffectCheckUpdates
	EffectToggleCloseBehavior
	EffectExportLogs
	EffectDownloadUpdate
	EffectInstallUpdate
	EffectIgnoreUpdate
)

func (p UpdatePrompt) ChoiceCount() int {
	if p.Downloaded {
		return 2
	}
	return 3
}

func ReduceKey(state State, msg tea.KeyMsg) (State, Effect) {
	if state.ErrorModalText != "" || state.InfoModalText != "" {
		if key.Matches(msg, state.Keys.Dismiss) || key.Matches(msg, state.Keys.Activate) {
			state.ErrorModalText = ""
			state.InfoModalText = ""
		}
		return state, EffectNone
	}

	if state.Prompt.Open {
		return reducePromptKey(state, msg)
	}

	switch {
	case msg.String() == "ctrl+c" || key.Matches(msg, state.Keys.Quit):
		return state, EffectRequestQuit
	case key.Matches(msg, state.Keys.Follow) && state.ShowLogs:
		state.FollowLogs = true
		state.LogView.GotoBottom()
		return state, EffectNone
	case key.Matches(msg, state.Keys.NextFocus):
		state.Focus = (state.Focus + 1) % actionCount
		return state, EffectNone
	case key.Matches(msg, state.Keys.PrevFocus):
		state.Focus = (state.Focus + actionCount - 1) % actionCount
		return state, EffectNone
	case key.Matches(msg, state.Keys.Activate):
		return ReduceActivate(state, state.Focus)
	case key.Matches(msg, state.Keys.OpenUI):
		return ReduceActivate(state, ActionOpenUI)
	case key.Matches(msg, state.Keys.Check):
		return ReduceActivate(state, ActionCheck)
	case key.Matches(msg, state.Keys.Export):
		return ReduceActivate(state, ActionExport)
	case key.Matches(msg, state.Keys.Logs):
		return ReduceActivate(state, ActionLogs)
	}
	return state, EffectNone
}

func reducePromptKey(state State, msg tea.KeyMsg) (State, Effect) {
	count := state.Prompt.ChoiceCount()
	switch {
	case key.Matches(msg, state.Keys.Dismiss):
		state.Prompt.Open = false
		return state, EffectNone
	case msg.String() == "shift+tab" || msg.String() == "left":
		state.Prompt.Choice = (state.Prompt.Choice + count - 1) % count
		return state, EffectNone
	case key.Matches(msg, state.Keys.ModalToggle):
		state.Prompt.Choice = (state.Prompt.Choice + 1) % count
		return state, EffectNone
	case key.Matches(msg, state.Keys.Activate):
		return ReducePromptChoice(state, state.Prompt.Choice)
	}
	return state, EffectNone
}

// ReducePromptChoice closes the update prompt with choice.
func ReducePromptChoice(state State, choice int) (State, Effect) {
	state.Prompt.Open = false
	switch {
	case choice == PromptChoiceLater:
		return state, EffectNone
	case state.Prompt.Downloaded:
		return state, EffectInstallUpdate
	case choice == PromptChoiceIgnore:
		return state, EffectIgnoreUpdate
	default:
		return state, EffectDownloadUpdate
	}
}

// ReduceActivate runs the overview action at index.
func ReduceActivate(state State, action int) (State, Effect) {
	state.Focus = action
	switch action {
	case ActionOpenUI:
		return state, EffectOpenUI
	case ActionCheck:
		return state, EffectCheckUpdates
	case ActionCloseBehavior:
		return state, EffectToggleCloseBehavior
	case ActionExport:
		return state, EffectExportLogs
	case ActionLogs:
		state.ShowLogs = !state.ShowLogs
		if state.ShowLogs {
			state.FollowLogs = true
			state.LogView.GotoBottom()
		}
		return state, EffectNone
	case ActionQuit:
		return state, EffectRequestQuit
	default:
		return state, EffectNone
	}
}
