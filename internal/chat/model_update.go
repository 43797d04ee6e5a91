package chat

import (
	"errors"

	"github.com/adamavenir/gchat/internal/api"
	"github.com/adamavenir/gchat/internal/session"
	"github.com/adamavenir/gchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

type groupNameMsg struct {
	group types.ID
	name  string
}

type sessionChangedMsg struct{}

type sessionCheckedMsg struct {
	sess *session.Session
	err  error
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshViewport(true)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case pollTickMsg:
		return m, m.handlePollTick(msg)
	case messagesFetchedMsg:
		return m, m.handleMessagesFetched(msg)
	case groupsFetchedMsg:
		return m, m.handleGroupsFetched(msg)
	case messageSentMsg:
		return m, m.handleMessageSent(msg)
	case groupCreatedMsg:
		return m, m.handleGroupCreated(msg)
	case groupNameMsg:
		if m.conv != nil && m.conv.Group == msg.group && m.groupName == "" {
			m.groupName = msg.name
		}
		return m, nil
	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	case soundDoneMsg:
		if msg.err != nil {
			m.logger.Debug().Err(msg.err).Msg("notification failed")
		}
		return m, nil
	case sessionChangedMsg:
		return m, m.checkSessionCmd()
	case sessionCheckedMsg:
		return m.handleSessionChecked(msg)
	}
	return m, nil
}

// handleAuthError ends the UI when err is an authentication failure. It
// reports whether it did.
func (m *Model) handleAuthError(err error) (bool, tea.Cmd) {
	if !api.IsUnauthorized(err) && !errors.Is(err, session.ErrNotAuthenticated) {
		return false, nil
	}
	return true, m.endSession(session.ErrNotAuthenticated)
}

func (m *Model) endSession(reason error) tea.Cmd {
	if m.store != nil && errors.Is(reason, session.ErrNotAuthenticated) {
		if err := m.store.Clear(); err != nil {
			m.logger.Warn().Err(err).Msg("clear session")
		}
	}
	m.logger.Info().Err(reason).Msg("session ended")
	m.exitErr = reason
	m.cancel()
	return tea.Quit
}

func (m *Model) checkSessionCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store, now := m.store, m.now()
	return func() tea.Msg {
		sess, err := store.Current(now)
		return sessionCheckedMsg{sess: sess, err: err}
	}
}

func (m *Model) handleSessionChecked(msg sessionCheckedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, session.ErrNotAuthenticated) {
			return m, m.endSession(session.ErrNotAuthenticated)
		}
		m.logger.Warn().Err(msg.err).Msg("session check failed")
		return m, nil
	}
	if m.session != nil && msg.sess.Access != m.session.Access && msg.sess.Username != m.session.Username {
		return m, m.endSession(ErrSessionChanged)
	}
	return m, nil
}
