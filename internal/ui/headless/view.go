package headless

import (
	zone "github.com/lrstanley/bubblezone"

	"wechat-desktop/internal/config"
	headlessview "wechat-desktop/internal/ui/headless/view"
)

// runtimeView projects shell state into the render DTO consumed by the view
// package.
func (m *headlessModel) runtimeView() headlessview.Runtime {
	return headlessview.Runtime{
		Version:        m.shell.GetAppVersion(),
		Status:         m.status,
		StartURL:       m.startURL,
		CloseToTray:    m.shell.GetCloseBehavior() == config.CloseToTray,
		UpdatesEnabled: m.shell.Updates.Enabled(),
		Checking:       m.checking,
	}
}

func (m *headlessModel) View() string {
	return zone.Scan(headlessview.RenderApp(&m.ui, m.runtimeView()))
}
