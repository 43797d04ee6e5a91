package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// View implements tea.Model.
func (m *Model) View() string {
	var output string
	if m.screen == screenChat {
		output = m.chatView()
	} else {
		output = m.groupsView()
	}
	return m.zoneManager.Scan(output)
}

func (m *Model) chatView() string {
	statusLine := lipgloss.NewStyle().Foreground(statusColor).Render(m.clip(m.statusLine()))
	lines := []string{m.renderHeader(), m.viewport.View(), ""}
	if preview := m.renderReplyPreview(); preview != "" {
		lines = append(lines, preview)
	}
	lines = append(lines, m.renderInput(), statusLine)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderHeader() string {
	name := m.groupName
	if name == "" && m.conv != nil {
		name = fmt.Sprintf("#%s", m.conv.Group)
	}
	title := lipgloss.NewStyle().Foreground(headerColor).Bold(true).Render("# " + name)
	who := lipgloss.NewStyle().Foreground(metaColor).Render("@" + m.session.DisplayName())
	if m.width <= 0 {
		return title + "  " + who
	}
	gap := m.width - ansi.StringWidth(title) - ansi.StringWidth(who)
	if gap < 2 {
		return m.clip(title)
	}
	return title + strings.Repeat(" ", gap) + who
}

// refreshViewport re-renders the conversation, padding short content so it
// sits at the bottom like a chat log.
func (m *Model) refreshViewport(scrollToBottom bool) {
	content := m.renderMessages()
	if m.viewport.Height > 0 {
		if pad := m.viewport.Height - lipgloss.Height(content); pad > 0 {
			content = strings.Repeat("\n", pad) + content
		}
	}
	m.viewport.SetContent(content)
	if scrollToBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) clip(s string) string {
	if m.width <= 0 {
		return s
	}
	return ansi.Truncate(s, m.width, "…")
}
