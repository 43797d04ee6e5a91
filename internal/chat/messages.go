package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/gchat/internal/core"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

const (
	replyPreviewLen = 50
	replyBannerLen  = 30
)

// truncatePreview cuts s to max runes and appends "..." when it was longer.
func truncatePreview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func messageZoneID(id types.ID) string {
	return "msg-" + id.String()
}

func (m *Model) renderMessages() string {
	if m.conv == nil {
		return ""
	}
	msgs := m.conv.Timeline.Messages()
	if len(msgs) == 0 {
		hint := "No messages yet."
		if !m.loaded {
			hint = "Loading…"
		}
		return lipgloss.NewStyle().Foreground(metaColor).Render(hint)
	}
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	now := m.now()
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, m.formatMessage(msg, width, now))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) formatMessage(msg types.Message, width int, now time.Time) string {
	pending := m.conv.Timeline.IsPending(msg.ID)
	selected := msg.ID == m.selected && !m.input.Focused()

	var lines []string
	if msg.ReplyTo != nil {
		lines = append(lines, renderReplyContext(*msg.ReplyTo))
	}

	username := msg.Sender.Username
	if username == "" {
		username = "unknown"
	}
	avatar := msg.Sender.Avatar
	if avatar == "" {
		avatar = core.Avatar(username)
	}
	byline := renderByline(username, avatar, colorForUser(username))
	if !pending {
		byline = m.zoneManager.Mark(messageZoneID(msg.ID), byline)
	}

	bodyWidth := width - 2
	if bodyWidth < 10 {
		bodyWidth = 10
	}
	body := ansi.Wrap(normalizeNewlines(msg.Content), bodyWidth, "")
	bodyStyle := lipgloss.NewStyle().Foreground(textColor)
	switch {
	case pending:
		bodyStyle = bodyStyle.Foreground(blurText)
	case m.mentionsMe(msg):
		bodyStyle = bodyStyle.Foreground(mentionColor)
	}
	lines = append(lines, byline, bodyStyle.Render(body))
	lines = append(lines, m.renderFooter(msg, pending, now))

	block := strings.Join(lines, "\n")
	if selected {
		marker := lipgloss.NewStyle().Foreground(caretColor).Render("▌")
		parts := strings.Split(block, "\n")
		for i, p := range parts {
			parts[i] = marker + p
		}
		return strings.Join(parts, "\n")
	}
	return block
}

// mentionsMe reports whether someone else's message mentions the user.
func (m *Model) mentionsMe(msg types.Message) bool {
	me := m.session.DisplayName()
	if strings.EqualFold(msg.Sender.Username, me) {
		return false
	}
	return core.Mentions(msg.Content, me)
}

func renderByline(username, avatar string, color lipgloss.Color) string {
	var content string
	if avatar != "" {
		content = fmt.Sprintf(" %s @%s: ", avatar, username)
	} else {
		content = fmt.Sprintf(" @%s: ", username)
	}
	style := lipgloss.NewStyle().Background(color).Foreground(contrastTextColor(color)).Bold(true)
	return style.Render(content)
}

func renderReplyContext(parent types.Message) string {
	style := lipgloss.NewStyle().Foreground(metaColor).Italic(true)
	who := parent.Sender.Username
	if who == "" {
		return style.Render(fmt.Sprintf("↪ #%s", parent.ID))
	}
	return style.Render(fmt.Sprintf("↪ @%s: %s", who, truncatePreview(parent.Content, replyPreviewLen)))
}

func (m *Model) renderFooter(msg types.Message, pending bool, now time.Time) string {
	meta := lipgloss.NewStyle().Foreground(metaColor)
	var parts []string
	if pending {
		parts = append(parts, lipgloss.NewStyle().Foreground(pendingColor).Render("sending…"))
	} else {
		parts = append(parts, meta.Render("#"+msg.ID.String()))
	}
	if !msg.Timestamp.IsZero() {
		parts = append(parts, meta.Render(humanize.RelTime(msg.Timestamp, now, "ago", "from now")))
	}
	if n := len(msg.RepliedBy); n > 0 {
		names := make([]string, 0, n)
		for _, r := range msg.RepliedBy {
			if r.Sender.Username != "" {
				names = append(names, "@"+r.Sender.Username)
			} else {
				names = append(names, "#"+r.ID.String())
			}
		}
		label := "replies"
		if n == 1 {
			label = "reply"
		}
		parts = append(parts, meta.Render(fmt.Sprintf("↩ %d %s: %s", n, label, strings.Join(names, " "))))
	}
	return strings.Join(parts, meta.Render(" · "))
}
