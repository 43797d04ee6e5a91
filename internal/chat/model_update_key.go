package chat

import (
	"github.com/adamavenir/gchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.interacted {
		m.interacted = true
		if m.conv != nil {
			m.conv.SetAudio(m.audioEnabled())
		}
	}
	if msg.Type == tea.KeyCtrlC {
		m.cancel()
		return m, tea.Quit
	}
	if m.screen == screenChat {
		return m.handleChatKey(msg)
	}
	return m.handleGroupsKey(msg)
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.submitMessage()
		case tea.KeyEsc:
			m.blurComposer()
			m.refreshViewport(false)
			return m, nil
		}
		if msg.Paste {
			m.input.InsertString(normalizeNewlines(string(msg.Runes)))
			m.resize()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.resize()
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "esc":
		if m.conv != nil && m.conv.ReplyTo() != nil {
			m.conv.ClearReplyTo()
			m.resize()
			return m, nil
		}
		return m, m.showGroups()
	case "i", "enter":
		m.focusComposer()
		m.refreshViewport(false)
		return m, nil
	case "up", "k":
		m.moveSelection(-1)
		return m, nil
	case "down", "j":
		m.moveSelection(1)
		return m, nil
	case "r":
		return m, m.replyToSelected()
	case "G", "end":
		m.viewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleGroupsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.groupInput.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.submitGroup()
		case tea.KeyEsc:
			m.groupInput.Reset()
			m.groupInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.groupInput, cmd = m.groupInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		m.cancel()
		return m, tea.Quit
	case "n", "+":
		return m, m.groupInput.Focus()
	case "up", "k":
		m.groupIndex--
		m.clampGroupIndex()
	case "down", "j":
		m.groupIndex++
		m.clampGroupIndex()
	case "enter":
		groups := m.groups.Groups()
		if m.groupIndex < len(groups) {
			return m, m.openListedGroup(groups[m.groupIndex])
		}
	}
	return m, nil
}

func (m *Model) openListedGroup(g types.Group) tea.Cmd {
	if m.groups.IsPending(g.ID) {
		return m.setStatus("Group is still being created")
	}
	return m.openGroup(g.ID, g.Name)
}

// moveSelection walks the message cursor. The first move selects the
// newest message.
func (m *Model) moveSelection(delta int) {
	if m.conv == nil {
		return
	}
	msgs := m.conv.Timeline.Messages()
	if len(msgs) == 0 {
		return
	}
	idx := -1
	for i, msg := range msgs {
		if msg.ID == m.selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = len(msgs)
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(msgs) {
		idx = len(msgs) - 1
	}
	m.selected = msgs[idx].ID
	m.refreshViewport(idx == len(msgs)-1)
}

func (m *Model) replyToSelected() tea.Cmd {
	if m.conv == nil || m.selected == 0 {
		return nil
	}
	msg, ok := m.conv.Timeline.Get(m.selected)
	if !ok {
		return nil
	}
	return m.startReply(msg)
}

func (m *Model) startReply(msg types.Message) tea.Cmd {
	if err := m.conv.SetReplyTo(msg); err != nil {
		return m.setStatus(errorText(err))
	}
	m.focusComposer()
	m.resize()
	m.refreshViewport(false)
	return nil
}
