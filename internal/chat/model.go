package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adamavenir/gchat/internal/chatstate"
	"github.com/adamavenir/gchat/internal/core"
	"github.com/adamavenir/gchat/internal/poll"
	"github.com/adamavenir/gchat/internal/session"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rs/zerolog"
)

// ErrSessionChanged is returned when another process signed in as a
// different user while the UI was open.
var ErrSessionChanged = errors.New("session changed in another gchat process")

// Gateway is the chat service as the UI uses it.
type Gateway interface {
	chatstate.MessageGateway
	chatstate.GroupCreator
	ListGroupsWithCounts(ctx context.Context) ([]types.Group, error)
	GroupName(ctx context.Context, id types.ID) string
}

// Options configure chat.
type Options struct {
	Gateway Gateway
	Session *session.Session
	// Store, if set, is cleared on authentication failures and watched for
	// logins and logouts made by other processes.
	Store  *session.Store
	Config core.Config
	Logger zerolog.Logger
	// Group opens a conversation directly instead of the group list.
	Group types.ID
}

// Run starts the chat UI.
func Run(opts Options) error {
	model, err := NewModel(opts)
	if err != nil {
		return err
	}
	fmt.Printf("\033]0;%s\007", "gchat")

	program := tea.NewProgram(model, tea.WithMouseCellMotion())

	if opts.Store != nil {
		watchCtx, stopWatch := context.WithCancel(context.Background())
		defer stopWatch()
		err := session.Watch(watchCtx, opts.Store.Path(), opts.Logger, func() {
			program.Send(sessionChangedMsg{})
		})
		if err != nil {
			opts.Logger.Warn().Err(err).Msg("session watcher unavailable")
		}
	}

	final, err := program.Run()
	model.Close()
	if err != nil {
		return err
	}
	if fm, ok := final.(*Model); ok && fm.exitErr != nil {
		return fm.exitErr
	}
	return nil
}

type screen int

const (
	screenGroups screen = iota
	screenChat
)

// Model implements the chat UI.
type Model struct {
	gateway Gateway
	store   *session.Store
	session *session.Session
	cfg     core.Config
	logger  zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	ids     *chatstate.TempIDs
	now     func() time.Time

	screen screen
	width  int
	height int

	// group list
	groups       *chatstate.GroupList
	groupIndex   int
	groupInput   textinput.Model
	groupLoop    *poll.Loop
	groupsLoaded bool

	// open conversation
	conv       *chatstate.Conversation
	groupName  string
	msgLoop    *poll.Loop
	loaded     bool
	selected   types.ID
	viewport   viewport.Model
	input      textarea.Model
	startGroup types.ID

	zoneManager *zone.Manager
	status      string
	statusSeq   int
	// interacted flips on the first key press; sound stays off until then.
	interacted bool
	exitErr    error
}

// NewModel creates a chat model. Nothing is fetched until Init.
func NewModel(opts Options) (*Model, error) {
	if opts.Gateway == nil {
		return nil, errors.New("chat: gateway is required")
	}
	cfg := opts.Config
	if cfg.MessagePoll <= 0 {
		cfg.MessagePoll = core.Duration(core.DefaultMessagePoll)
	}
	if cfg.GroupPoll <= 0 {
		cfg.GroupPoll = core.Duration(core.DefaultGroupPoll)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ids := &chatstate.TempIDs{}
	m := &Model{
		gateway:     opts.Gateway,
		store:       opts.Store,
		session:     opts.Session,
		cfg:         cfg,
		logger:      opts.Logger.With().Str("component", "chat").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		ids:         ids,
		now:         time.Now,
		groups:      chatstate.NewGroupList(ids),
		groupInput:  newGroupInput(),
		groupLoop:   poll.NewLoop(cfg.GroupPoll.Std(), nil),
		viewport:    viewport.New(0, 0),
		input:       newComposer(),
		startGroup:  opts.Group,
		zoneManager: zone.New(),
	}
	m.msgLoop = poll.NewLoop(cfg.MessagePoll.Std(), m.composing)
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.startGroup != 0 {
		return m.openGroup(m.startGroup, "")
	}
	return m.showGroups()
}

// Close stops in-flight requests.
func (m *Model) Close() {
	m.cancel()
	if m.zoneManager != nil {
		m.zoneManager.Close()
	}
}

func (m *Model) composing() bool {
	return m.conv != nil && m.conv.Composing()
}

func (m *Model) audioEnabled() bool {
	return m.cfg.Sound && m.interacted
}

// showGroups switches to the group list and re-arms its poll.
func (m *Model) showGroups() tea.Cmd {
	m.screen = screenGroups
	m.msgLoop.Stop()
	m.conv = nil
	m.groupName = ""
	m.resize()
	tag := m.groupLoop.Arm(0)
	return tea.Batch(m.fetchGroupsCmd(), m.tickCmd(streamGroups, tag))
}

// openGroup starts a fresh conversation for id. The previous conversation
// and its poll generation are discarded. An empty name is looked up.
func (m *Model) openGroup(id types.ID, name string) tea.Cmd {
	m.screen = screenChat
	m.groupLoop.Stop()
	m.conv = chatstate.NewConversation(chatstate.ConversationOptions{
		Group:   id,
		Gateway: m.gateway,
		Sender:  m.session.Sender(),
		Audio:   m.audioEnabled(),
		Logger:  m.logger,
		IDs:     m.ids,
		Now:     m.now,
	})
	m.groupName = name
	m.loaded = false
	m.selected = 0
	m.input.Reset()
	m.blurComposer()
	m.resize()
	m.refreshViewport(true)

	tag := m.msgLoop.Arm(id)
	cmds := []tea.Cmd{m.fetchMessagesCmd(), m.tickCmd(streamMessages, tag)}
	if name == "" {
		cmds = append(cmds, m.groupNameCmd(id))
	}
	return tea.Batch(cmds...)
}
