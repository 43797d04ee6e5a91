package chat

import (
	"time"

	"github.com/adamavenir/gchat/internal/core"
	tea "github.com/charmbracelet/bubbletea"
)

type clearStatusMsg struct {
	seq int
}

// setStatus shows a transient message that clears itself after the toast
// duration unless replaced first.
func (m *Model) setStatus(text string) tea.Cmd {
	m.statusSeq++
	seq := m.statusSeq
	m.status = text
	return tea.Tick(core.DefaultToastDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func (m *Model) statusLine() string {
	if m.status != "" {
		return m.status
	}
	switch m.screen {
	case screenChat:
		if m.input.Focused() {
			return "enter send · ctrl+j newline · esc stop typing"
		}
		if m.conv != nil && m.conv.ReplyTo() != nil {
			return "i type reply · esc cancel reply · ↑/↓ select"
		}
		return "i type · ↑/↓ select · r reply · esc groups · q quit"
	default:
		if m.groupInput.Focused() {
			return "enter create · esc cancel"
		}
		return "↑/↓ select · enter open · n new group · q quit"
	}
}
