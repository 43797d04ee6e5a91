package chat

import tea "github.com/charmbracelet/bubbletea"

func (m *Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		if handled, cmd := m.handleMouseClick(msg); handled {
			return m, cmd
		}
	}
	if m.screen != screenChat {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleMouseClick(msg tea.MouseMsg) (bool, tea.Cmd) {
	if m.screen == screenGroups {
		for i, g := range m.groups.Groups() {
			if m.zoneManager.Get(groupZoneID(g.ID)).InBounds(msg) {
				m.groupIndex = i
				return true, m.openListedGroup(g)
			}
		}
		return false, nil
	}

	if m.conv == nil {
		return false, nil
	}
	if m.conv.ReplyTo() != nil && m.zoneManager.Get("reply-cancel").InBounds(msg) {
		m.conv.ClearReplyTo()
		m.resize()
		return true, nil
	}
	if m.zoneManager.Get(composerZoneID).InBounds(msg) {
		m.focusComposer()
		return true, nil
	}
	for _, message := range m.conv.Timeline.Messages() {
		if message.ID.IsProvisional() {
			continue
		}
		if m.zoneManager.Get(messageZoneID(message.ID)).InBounds(msg) {
			m.selected = message.ID
			return true, m.startReply(message)
		}
	}
	return false, nil
}
