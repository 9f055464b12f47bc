package tui

import (
	"fmt"
	"strings"

	"codepair/internal/events"
)

// chromeHeight is everything around the viewport: header, tab bar, input,
// status line, and one separator.
const chromeHeight = 6

func (m *Shell) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Shell) renderHeader() string {
	title := titleStyle.Render("codepair")
	meta := fmt.Sprintf("%s · %s via %s · %s",
		m.session.Workspace.Name,
		m.session.ModelDisplay,
		m.session.ProviderLabel,
		string(m.session.Generation),
	)
	return title + "  " + mutedStyle.Render(meta)
}

func (m *Shell) renderTabs() string {
	chat := "Chat"
	reviewLabel := "Review"
	if n := m.pendingCount(); n > 0 {
		reviewLabel = fmt.Sprintf("Review (%d)", n)
	}

	if m.active == paneChat {
		return activeTab.Render(chat) + tabStyle.Render("  ·  "+reviewLabel+"  ·  tab to switch")
	}
	return tabStyle.Render(chat+"  ·  ") + activeTab.Render(reviewLabel) + tabStyle.Render("  ·  tab to switch")
}

func (m *Shell) renderStatus() string {
	prefix := ""
	if m.running {
		prefix = m.spin.View() + " "
	}

	text := m.status
	switch m.statusLevel {
	case events.EventError:
		text = errorStyle.Render(text)
	case events.EventWarn:
		text = warnStyle.Render(text)
	case events.EventSuccess:
		text = successStyle.Render(text)
	default:
		text = mutedStyle.Render(text)
	}

	hints := mutedStyle.Render("  ·  esc stop/quit · ctrl+c quit")
	return prefix + text + hints
}
