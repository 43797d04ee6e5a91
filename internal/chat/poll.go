package chat

import (
	"time"

	"github.com/adamavenir/gchat/internal/poll"
	"github.com/adamavenir/gchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

type stream int

const (
	streamMessages stream = iota
	streamGroups
)

type pollTickMsg struct {
	stream stream
	tag    poll.Tag
}

type messagesFetchedMsg struct {
	tag   poll.Tag
	batch []types.Message
	err   error
}

type groupsFetchedMsg struct {
	tag    poll.Tag
	groups []types.Group
	err    error
}

func (m *Model) loopFor(s stream) *poll.Loop {
	if s == streamGroups {
		return m.groupLoop
	}
	return m.msgLoop
}

func (m *Model) tickCmd(s stream, tag poll.Tag) tea.Cmd {
	return tea.Tick(m.loopFor(s).Interval(), func(time.Time) tea.Msg {
		return pollTickMsg{stream: s, tag: tag}
	})
}

// handlePollTick schedules the next tick at the fixed interval and issues
// a fetch unless the loop is suspended. Stale ticks end their chain.
func (m *Model) handlePollTick(msg pollTickMsg) tea.Cmd {
	loop := m.loopFor(msg.stream)
	switch loop.OnTick(msg.tag) {
	case poll.Drop:
		return nil
	case poll.Skip:
		return m.tickCmd(msg.stream, loop.NextTick(msg.tag))
	}
	next := m.tickCmd(msg.stream, loop.NextTick(msg.tag))
	if msg.stream == streamGroups {
		return tea.Batch(next, m.fetchGroupsCmd())
	}
	return tea.Batch(next, m.fetchMessagesCmd())
}

func (m *Model) fetchMessagesCmd() tea.Cmd {
	tag := m.msgLoop.Issue()
	gw, ctx := m.gateway, m.ctx
	return func() tea.Msg {
		batch, err := gw.ListMessages(ctx, tag.Target)
		return messagesFetchedMsg{tag: tag, batch: batch, err: err}
	}
}

func (m *Model) fetchGroupsCmd() tea.Cmd {
	tag := m.groupLoop.Issue()
	gw, ctx := m.gateway, m.ctx
	return func() tea.Msg {
		groups, err := gw.ListGroupsWithCounts(ctx)
		return groupsFetchedMsg{tag: tag, groups: groups, err: err}
	}
}

func (m *Model) groupNameCmd(id types.ID) tea.Cmd {
	gw, ctx := m.gateway, m.ctx
	return func() tea.Msg {
		return groupNameMsg{group: id, name: gw.GroupName(ctx, id)}
	}
}

func (m *Model) handleMessagesFetched(msg messagesFetchedMsg) tea.Cmd {
	if !m.msgLoop.Accept(msg.tag) || m.conv == nil || m.conv.Group != msg.tag.Target {
		return nil
	}
	if msg.err != nil {
		if ended, cmd := m.handleAuthError(msg.err); ended {
			return cmd
		}
		if m.ctx.Err() == nil {
			m.logger.Warn().Err(msg.err).Int64("group", int64(msg.tag.Target)).Msg("message poll failed")
		}
		return nil
	}

	follow := !m.loaded || m.viewport.AtBottom()
	playSound := m.conv.Apply(msg.batch)
	// The first batch of a conversation is history, not news.
	if !m.loaded {
		playSound = false
		m.loaded = true
	}
	m.refreshViewport(follow)
	if !playSound {
		return nil
	}
	return m.notifyCmd(m.newestFromOthers())
}

func (m *Model) handleGroupsFetched(msg groupsFetchedMsg) tea.Cmd {
	if !m.groupLoop.Accept(msg.tag) {
		return nil
	}
	if msg.err != nil {
		if ended, cmd := m.handleAuthError(msg.err); ended {
			return cmd
		}
		if m.ctx.Err() == nil {
			m.logger.Warn().Err(msg.err).Msg("group poll failed")
		}
		return nil
	}
	m.groups.ApplyFetch(msg.groups)
	m.groupsLoaded = true
	m.clampGroupIndex()
	return nil
}

// newestFromOthers returns the latest confirmed message not written by the
// current user.
func (m *Model) newestFromOthers() *types.Message {
	msgs := m.conv.Timeline.Messages()
	me := m.session.CurrentUserID()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID.IsProvisional() {
			continue
		}
		if me != 0 && msgs[i].Sender.ID == me {
			continue
		}
		msg := msgs[i]
		return &msg
	}
	return nil
}
