package chat

import (
	"fmt"
	"strings"

	"github.com/adamavenir/gchat/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize/english"
)

func groupZoneID(id types.ID) string {
	return "group-" + id.String()
}

func (m *Model) groupsView() string {
	title := lipgloss.NewStyle().Foreground(headerColor).Bold(true).Render("gchat · groups")
	who := lipgloss.NewStyle().Foreground(metaColor).Render("  @" + m.session.DisplayName())

	lines := []string{title + who}
	lines = append(lines, m.renderGroupRows()...)
	lines = append(lines, "")
	if m.groupInput.Focused() {
		lines = append(lines, m.groupInput.View())
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(statusColor).Render(m.clip(m.statusLine())))
	return strings.Join(lines, "\n")
}

func (m *Model) renderGroupRows() []string {
	groups := m.groups.Groups()
	meta := lipgloss.NewStyle().Foreground(metaColor)
	if len(groups) == 0 {
		if !m.groupsLoaded {
			return []string{meta.Render("Loading…")}
		}
		return []string{meta.Render("No groups yet. Press n to create one.")}
	}

	visible := m.groupListHeight()
	start := 0
	if m.groupIndex >= visible {
		start = m.groupIndex - visible + 1
	}
	end := start + visible
	if end > len(groups) {
		end = len(groups)
	}

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderGroupRow(groups[i], i == m.groupIndex))
	}
	return rows
}

func (m *Model) renderGroupRow(g types.Group, selected bool) string {
	meta := lipgloss.NewStyle().Foreground(metaColor)
	nameStyle := lipgloss.NewStyle().Foreground(textColor)
	cursor := "  "
	if selected {
		cursor = lipgloss.NewStyle().Foreground(caretColor).Render("› ")
		nameStyle = nameStyle.Bold(true).Background(selectColor)
	}

	var detail string
	if m.groups.IsPending(g.ID) {
		detail = lipgloss.NewStyle().Foreground(pendingColor).Render("creating…")
	} else {
		detail = meta.Render(english.Plural(g.Count(), "message", ""))
		if g.Creator != "" {
			detail += meta.Render(fmt.Sprintf(" · by @%s", g.Creator))
		}
	}
	row := cursor + nameStyle.Render(g.Name) + "  " + detail
	if m.groups.IsPending(g.ID) {
		return m.clip(row)
	}
	return m.zoneManager.Mark(groupZoneID(g.ID), m.clip(row))
}

func (m *Model) clampGroupIndex() {
	n := m.groups.Len()
	if m.groupIndex >= n {
		m.groupIndex = n - 1
	}
	if m.groupIndex < 0 {
		m.groupIndex = 0
	}
}
