package chat

import (
	"errors"

	"github.com/adamavenir/gchat/internal/api"
	"github.com/adamavenir/gchat/internal/chatstate"
	"github.com/adamavenir/gchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

type messageSentMsg struct {
	conv    *chatstate.Conversation
	pending chatstate.PendingSend
	msg     types.Message
	err     error
}

type groupCreatedMsg struct {
	tempID types.ID
	group  types.Group
	err    error
}

// submitMessage posts the composer's content optimistically. A blank draft
// changes nothing.
func (m *Model) submitMessage() tea.Cmd {
	if m.conv == nil {
		return nil
	}
	pending, ok := m.conv.BeginSend(m.input.Value())
	if !ok {
		return nil
	}
	m.input.Reset()
	m.blurComposer()
	m.resize()
	m.refreshViewport(true)

	conv, gw, ctx := m.conv, m.gateway, m.ctx
	return func() tea.Msg {
		msg, err := gw.CreateMessage(ctx, pending.Request)
		return messageSentMsg{conv: conv, pending: pending, msg: msg, err: err}
	}
}

func (m *Model) handleMessageSent(msg messageSentMsg) tea.Cmd {
	// The conversation was closed while the request was in flight.
	if msg.conv != m.conv {
		return nil
	}
	if err := m.conv.Finish(msg.pending, msg.msg, msg.err); err != nil {
		if ended, cmd := m.handleAuthError(err); ended {
			return cmd
		}
		m.refreshViewport(false)
		return m.setStatus("Not sent: " + errorText(err))
	}
	m.refreshViewport(m.viewport.AtBottom())
	return nil
}

// submitGroup creates the group named in the group input optimistically.
func (m *Model) submitGroup() tea.Cmd {
	provisional, err := m.groups.BeginCreate(m.groupInput.Value(), m.session.DisplayName())
	if err != nil {
		return m.setStatus(errorText(err))
	}
	m.groupInput.Reset()
	m.groupInput.Blur()
	m.groupIndex = m.groups.Len() - 1

	gw, ctx := m.gateway, m.ctx
	return func() tea.Msg {
		g, err := gw.CreateGroup(ctx, provisional.Name)
		return groupCreatedMsg{tempID: provisional.ID, group: g, err: err}
	}
}

func (m *Model) handleGroupCreated(msg groupCreatedMsg) tea.Cmd {
	if msg.err != nil {
		m.groups.RollbackCreate(msg.tempID)
		m.clampGroupIndex()
		m.logger.Warn().Err(msg.err).Int64("temp_id", int64(msg.tempID)).Msg("group creation failed, provisional group rolled back")
		if ended, cmd := m.handleAuthError(msg.err); ended {
			return cmd
		}
		return m.setStatus("Group not created: " + errorText(msg.err))
	}
	m.groups.ConfirmCreate(msg.tempID, msg.group)
	m.clampGroupIndex()
	return m.setStatus("Created " + msg.group.Name)
}

// errorText is the one-line message shown for err.
func errorText(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
