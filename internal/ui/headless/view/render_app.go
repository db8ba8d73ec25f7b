package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"wechat-desktop/internal/runstatus"
	"wechat-desktop/internal/ui/headless/render"
	"wechat-desktop/internal/ui/headless/theme"
)

const (
	appTitle                 = "WeChatDataAnalysis"
	frameInnerInset          = 4
	dialogHorizontalInset    = 8
	promptDialogWidth        = 72
	errorDialogWidth         = 78
	filePickerDialogMaxWidth = 96
	maxNoteLines             = 8
	overviewLabelWidth       = 8
)

func RenderApp(state *State, rt Runtime) string {
	if state.Width == 0 {
		return "initializing..."
	}

	base := renderBase(state, rt)
	switch {
	case state.FilePickerOpen:
		return renderModalOverlay(state, base, renderFilePickerDialog(state))
	case state.ErrorModalText != "":
		return renderModalOverlay(state, base, renderMessageDialog(state, theme.ErrorStyle.Render("Error"), state.ErrorModalText))
	case state.InfoModalText != "":
		return renderModalOverlay(state, base, renderMessageDialog(state, theme.TitleStyle.Render(appTitle), state.InfoModalText))
	case state.Prompt.Open:
		return renderModalOverlay(state, base, renderPromptDialog(state))
	}
	return base
}

func busy(rt Runtime) bool {
	return rt.Checking || runstatus.KindOf(rt.Status) == runstatus.KindBusy
}

func renderBase(state *State, rt Runtime) string {
	header := BusyTitle(appTitle, state.AnimPhase, busy(rt))
	if rt.Version != "" {
		header += " " + theme.HelpStyle.Render(rt.Version)
	}
	overview := renderOverview(state, rt)
	helpText := theme.HelpStyle.Render(state.HelpView.View(state.Keys))

	sections := []string{header, overview}
	if state.ProgressShown {
		sections = append(sections, renderProgressPanel(state))
	}
	if state.ShowLogs {
		state.FitLogViewportHeight(append(append([]string(nil), sections...), helpText), DefaultNonLogLayoutReserveMin, DefaultMinLogPanelHeight)
		sections = append(sections, renderLogPanel(state))
	}
	sections = append(sections, helpText)

	return renderFrame(state, rt, strings.Join(sections, "\n\n"), state.ContentWidth())
}

func renderFrame(state *State, rt Runtime, content string, width int) string {
	return render.Frame(content, width, busy(rt), state.AnimPhase, theme.PanelStyle)
}

func renderOverview(state *State, rt Runtime) string {
	inner := state.PageWidth() - frameInnerInset
	url := theme.LabelStyle.Render("not loaded yet")
	if rt.StartURL != "" {
		url = theme.LinkStyle.Render(render.TruncateDisplayWidth(rt.StartURL, max(inner-overviewLabelWidth, 1)))
	}
	rows := []string{
		overviewRow("Status", RenderStatus(rt.Status)),
		overviewRow("UI", url),
	}
	if !rt.UpdatesEnabled {
		rows = append(rows, overviewRow("Updates", theme.LabelStyle.Render("disabled for this build")))
	}

	logsLabel := "Logs"
	if state.ShowLogs {
		logsLabel = "Hide Logs"
	}
	checkLabel := "Check for updates"
	if rt.Checking {
		checkLabel = "Checking…"
	}
	actions := []string{
		renderButton(state, zoneAction(ActionOpenUI), "Open UI", state.Focus == ActionOpenUI, rt.StartURL != ""),
		renderButton(state, zoneAction(ActionCheck), checkLabel, state.Focus == ActionCheck, rt.UpdatesEnabled && !rt.Checking),
		renderCloseToggle(state, rt),
		renderButton(state, zoneAction(ActionExport), "Export logs", state.Focus == ActionExport, true),
		renderButton(state, zoneAction(ActionLogs), logsLabel, state.Focus == ActionLogs, true),
		renderButton(state, zoneAction(ActionQuit), "Quit", state.Focus == ActionQuit, true),
	}
	body := strings.Join(rows, "\n") + "\n\n" + RenderActionsRow(actions, inner)
	return renderFrame(state, rt, body, state.PageWidth())
}

func overviewRow(label, value string) string {
	return theme.LabelStyle.Render(fmt.Sprintf("%-*s", overviewLabelWidth, label+":")) + value
}

func renderProgressPanel(state *State) string {
	state.ResizeProgress()
	lines := []string{
		theme.TitleStyle.Render("Downloading update"),
		state.Progress.ViewAs(state.ProgressValue) + fmt.Sprintf(" %3.0f%%", state.ProgressValue*100),
	}
	if state.ProgressDetail != "" {
		lines = append(lines, theme.HelpStyle.Render(state.ProgressDetail))
	}
	return render.Frame(strings.Join(lines, "\n"), state.PageWidth(), false, 0, theme.PanelStyle)
}

func renderLogPanel(state *State) string {
	followHint := theme.HelpStyle.Render("ctrl+f follow")
	if state.FollowLogs {
		followHint = theme.HelpStyle.Render("following")
	}
	toolbar := lipgloss.JoinHorizontal(lipgloss.Center, theme.TitleStyle.Render("Logs"), "  ", followHint)
	withBar := WithScrollBar(state.LogView.View(), state.LogView.Width, state.LogView.Height, state.LogView.ScrollPercent())
	return render.Frame(toolbar+"\n"+withBar, state.PageWidth(), false, 0, theme.PanelStyle)
}

func renderPromptDialog(state *State) string {
	p := state.Prompt
	title := "Update available"
	message := fmt.Sprintf("Version %s is available.", p.Version)
	labels := []string{"Update now", "Later", "Ignore this version"}
	if p.Downloaded {
		title = "Update ready"
		message = fmt.Sprintf("Version %s has been downloaded. Install and restart now?", p.Version)
		labels = []string{"Install now", "Later"}
	}

	buttons := make([]string, 0, len(labels))
	for i, label := range labels {
		buttons = append(buttons, renderButton(state, zonePromptChoice(i), label, p.Choice == i, true))
	}

	dialogWidth := min(state.ContentWidth()-dialogHorizontalInset, promptDialogWidth)
	buttonLine := lipgloss.NewStyle().
		Width(max(dialogWidth-frameInnerInset, 1)).
		AlignHorizontal(lipgloss.Center).
		Render(RenderActionsRow(buttons, max(dialogWidth-frameInnerInset, 1)))

	parts := []string{theme.TitleStyle.Render(title), message}
	if notes := trimNotes(p.Notes, maxNoteLines); notes != "" {
		parts = append(parts, theme.HelpStyle.Render(notes))
	}
	parts = append(parts, buttonLine, theme.HelpStyle.Render("tab/arrows choose • enter confirms • esc later"))

	return render.Frame(strings.Join(parts, "\n"), dialogWidth, false, 0, theme.PanelStyle)
}

func trimNotes(notes string, maxLines int) string {
	lines := SplitLogLines(strings.TrimSpace(notes))
	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}
	return strings.Join(lines, "\n")
}

func renderMessageDialog(state *State, title string, message string) string {
	ok := zone.Mark(zoneDialogDismiss, theme.ButtonFocusedStyle.Render("OK"))
	body := strings.Join([]string{
		title,
		message,
		ok,
		theme.HelpStyle.Render("Press Enter or Esc to close"),
	}, "\n")
	return render.Frame(body, min(state.ContentWidth()-dialogHorizontalInset, errorDialogWidth), false, 0, theme.PanelStyle)
}

func renderFilePickerDialog(state *State) string {
	title := theme.TitleStyle.Render(state.FilePickerTitle)
	current := theme.HelpStyle.Render(state.FilePicker.CurrentDirectory)
	help := theme.HelpStyle.Render("up/down move • space open • enter select • left/backspace up • esc cancel")
	body := strings.Join([]string{title, current, state.FilePicker.View(), help}, "\n")
	return render.Frame(body, min(state.PageWidth(), filePickerDialogMaxWidth), false, 0, theme.PanelStyle)
}

func renderModalOverlay(state *State, base string, dialog string) string {
	faded := theme.ModalBackdrop.Render(base)
	overlay := lipgloss.Place(state.Width, state.Height, lipgloss.Center, lipgloss.Center, dialog)
	return faded + "\n" + overlay
}
