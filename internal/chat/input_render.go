package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const composerZoneID = "composer"

func (m *Model) renderInput() string {
	width := m.width
	if width <= 0 {
		width = m.input.Width() + inputPadding
	}
	style := lipgloss.NewStyle().Background(inputBg).Padding(0, 1, 0, 0).Width(width)
	blank := style.Render("")
	input := style.Render(m.input.View())
	return m.zoneManager.Mark(composerZoneID, lipgloss.JoinVertical(lipgloss.Left, blank, input, blank))
}

// renderReplyPreview shows the reply target above the composer with a
// clickable cancel control.
func (m *Model) renderReplyPreview() string {
	if m.conv == nil || m.conv.ReplyTo() == nil {
		return ""
	}
	target := m.conv.ReplyTo()
	label := fmt.Sprintf("↪ Replying to @%s: %s", target.Sender.Username, truncatePreview(target.Content, replyBannerLen))
	preview := lipgloss.NewStyle().Foreground(metaColor).Italic(true).Render(label)

	cancelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cancel := m.zoneManager.Mark("reply-cancel", cancelStyle.Render(" [x]"))

	if m.width <= 0 {
		return preview + cancel
	}
	room := m.width - ansi.StringWidth(cancel)
	if ansi.StringWidth(preview) > room {
		preview = ansi.Truncate(preview, room, "…")
	}
	gap := room - ansi.StringWidth(preview)
	if gap < 0 {
		gap = 0
	}
	return preview + strings.Repeat(" ", gap) + cancel
}
