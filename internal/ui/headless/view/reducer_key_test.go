package view

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestReduceKeyCyclesFocus(t *testing.T) {
	state := NewState()
	state.Focus = ActionQuit

	state, effect := ReduceKey(state, tea.KeyMsg{Type: tea.KeyTab})
	if effect != EffectNone || state.Focus != ActionOpenUI {
		t.Fatalf("tab from last action: focus=%d effect=%d", state.Focus, effect)
	}
	state, _ = ReduceKey(state, tea.KeyMsg{Type: tea.KeyShiftTab})
	if state.Focus != ActionQuit {
		t.Fatalf("shift+tab should wrap back to quit, got %d", state.Focus)
	}
}

func TestReduceKeyShortcuts(t *testing.T) {
	cases := []struct {
		key  tea.KeyMsg
		want Effect
	}{
		{keyRunes("o"), EffectOpenUI},
		{keyRunes("u"), EffectCheckUpdates},
		{keyRunes("e"), EffectExportLogs},
		{keyRunes("q"), EffectRequestQuit},
		{tea.KeyMsg{Type: tea.KeyCtrlC}, EffectRequestQuit},
	}
	for _, tc := range cases {
		if _, got := ReduceKey(NewState(), tc.key); got != tc.want {
			t.Fatalf("key %q: effect=%d want %d", tc.key.String(), got, tc.want)
		}
	}
}

func TestReduceKeyTogglesLogs(t *testing.T) {
	state := NewState()
	state.FollowLogs = false

	state, effect := ReduceKey(state, keyRunes("l"))
	if effect != EffectNone || !state.ShowLogs || !state.FollowLogs {
		t.Fatalf("logs should open and follow: show=%v follow=%v effect=%d", state.ShowLogs, state.FollowLogs, effect)
	}
	state, _ = ReduceKey(state, keyRunes("l"))
	if state.ShowLogs {
		t.Fatalf("second toggle should hide logs")
	}
}

func TestReduceKeyActivatesFocusedAction(t *testing.T) {
	state := NewState()
	state.Focus = ActionCloseBehavior
	if _, effect := ReduceKey(state, tea.KeyMsg{Type: tea.KeyEnter}); effect != EffectToggleCloseBehavior {
		t.Fatalf("enter on close toggle: effect=%d", effect)
	}
}

func TestMessageModalSwallowsKeys(t *testing.T) {
	state := NewState()
	state.ErrorModalText = "boom"

	state, effect := ReduceKey(state, keyRunes("q"))
	if effect != EffectNone || state.ErrorModalText == "" {
		t.Fatalf("modal should swallow quit key: effect=%d text=%q", effect, state.ErrorModalText)
	}
	state, _ = ReduceKey(state, tea.KeyMsg{Type: tea.KeyEsc})
	if state.ErrorModalText != "" {
		t.Fatalf("esc should dismiss the error modal")
	}
}

func TestUpdatePromptChoices(t *testing.T) {
	state := NewState().WithUpdatePrompt(" 1.4.0 ", "notes", false)
	if state.Prompt.Choice != PromptChoiceLater || state.Prompt.Version != "1.4.0" {
		t.Fatalf("unexpected prompt: %+v", state.Prompt)
	}

	next, effect := ReduceKey(state, tea.KeyMsg{Type: tea.KeyEnter})
	if effect != EffectNone || next.Prompt.Open {
		t.Fatalf("later should just close: effect=%d open=%v", effect, next.Prompt.Open)
	}

	next, _ = ReduceKey(state, tea.KeyMsg{Type: tea.KeyRight})
	if next.Prompt.Choice != PromptChoiceIgnore {
		t.Fatalf("right from later should select ignore, got %d", next.Prompt.Choice)
	}
	next, effect = ReduceKey(next, tea.KeyMsg{Type: tea.KeyEnter})
	if effect != EffectIgnoreUpdate || next.Prompt.Version != "1.4.0" {
		t.Fatalf("ignore: effect=%d version=%q", effect, next.Prompt.Version)
	}

	next, _ = ReduceKey(state, tea.KeyMsg{Type: tea.KeyLeft})
	if _, effect = ReduceKey(next, tea.KeyMsg{Type: tea.KeyEnter}); effect != EffectDownloadUpdate {
		t.Fatalf("update now: effect=%d", effect)
	}

	if next, effect = ReduceKey(state, tea.KeyMsg{Type: tea.KeyEsc}); effect != EffectNone || next.Prompt.Open {
		t.Fatalf("esc should close the prompt without an effect")
	}
}

func TestDownloadedPromptInstalls(t *testing.T) {
	state := NewState().WithUpdatePrompt("1.4.0", "", true)
	if state.Prompt.ChoiceCount() != 2 || state.Prompt.Choice != PromptChoiceInstall {
		t.Fatalf("unexpected downloaded prompt: %+v", state.Prompt)
	}
	if _, effect := ReduceKey(state, tea.KeyMsg{Type: tea.KeyEnter}); effect != EffectInstallUpdate {
		t.Fatalf("install now: effect=%d", effect)
	}
	next, _ := ReduceKey(state, tea.KeyMsg{Type: tea.KeyTab})
	if _, effect := ReduceKey(next, tea.KeyMsg{Type: tea.KeyEnter}); effect != EffectNone {
		t.Fatalf("later on downloaded prompt: effect=%d", effect)
	}
}
