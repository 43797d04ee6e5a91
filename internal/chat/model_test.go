package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adamavenir/gchat/internal/api"
	"github.com/adamavenir/gchat/internal/core"
	"github.com/adamavenir/gchat/internal/session"
	"github.com/adamavenir/gchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

var base = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type fakeGateway struct {
	messages  map[types.ID][]types.Message
	groups    []types.Group
	listErr   error
	createErr error
	groupErr  error
	nextID    types.ID
}

func (f *fakeGateway) ListMessages(ctx context.Context, group types.ID) ([]types.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages[group], nil
}

func (f *fakeGateway) CreateMessage(ctx context.Context, msg types.NewMessage) (types.Message, error) {
	if f.createErr != nil {
		return types.Message{}, f.createErr
	}
	f.nextID++
	return types.Message{
		ID:        f.nextID,
		Sender:    types.Sender{ID: 1, Username: "ana"},
		Content:   msg.Content,
		Timestamp: base.Add(time.Hour),
	}, nil
}

func (f *fakeGateway) CreateGroup(ctx context.Context, name string) (types.Group, error) {
	if f.groupErr != nil {
		return types.Group{}, f.groupErr
	}
	f.nextID++
	return types.Group{ID: f.nextID, Name: name, Creator: "ana"}, nil
}

func (f *fakeGateway) ListGroupsWithCounts(ctx context.Context) ([]types.Group, error) {
	return f.groups, nil
}

func (f *fakeGateway) GroupName(ctx context.Context, id types.ID) string {
	return api.FallbackGroupName(id)
}

func newTestModel(t *testing.T, gw *fakeGateway) *Model {
	t.Helper()
	cfg := core.DefaultConfig()
	m, err := NewModel(Options{
		Gateway: gw,
		Session: &session.Session{Access: "token", UserID: 1, Username: "ana"},
		Config:  cfg,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	m.width, m.height = 80, 24
	t.Cleanup(m.Close)
	return m
}

func msgAt(id types.ID, minute int, user, content string) types.Message {
	return types.Message{
		ID:        id,
		Sender:    types.Sender{ID: id + 100, Username: user},
		Content:   content,
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
	}
}

// openAndLoad opens group and applies its first fetch.
func openAndLoad(t *testing.T, m *Model, group types.ID) {
	t.Helper()
	m.openGroup(group, "friends")
	fetch := m.fetchMessagesCmd()
	m.Update(fetch())
	if !m.loaded {
		t.Fatal("expected conversation to be loaded")
	}
}

func TestStaleMessagesResponseIsDiscarded(t *testing.T) {
	gw := &fakeGateway{messages: map[types.ID][]types.Message{
		1: {msgAt(1, 0, "bo", "old group")},
		2: {msgAt(5, 0, "bo", "new group")},
	}}
	m := newTestModel(t, gw)

	m.openGroup(1, "one")
	inFlight := m.fetchMessagesCmd()
	m.openGroup(2, "two")

	m.Update(inFlight())
	if m.conv.Timeline.Len() != 0 {
		t.Fatalf("response for the previous group must be dropped, got %d messages", m.conv.Timeline.Len())
	}

	m.Update(m.fetchMessagesCmd()())
	if _, ok := m.conv.Timeline.Get(5); !ok {
		t.Fatal("response for the open group should apply")
	}
}

func TestOlderResponseAfterNewerIsDiscarded(t *testing.T) {
	gw := &fakeGateway{messages: map[types.ID][]types.Message{1: {msgAt(1, 0, "bo", "a")}}}
	m := newTestModel(t, gw)
	m.openGroup(1, "one")

	older := m.fetchMessagesCmd()().(messagesFetchedMsg)
	gw.messages[1] = append(gw.messages[1], msgAt(2, 1, "bo", "b"))
	newer := m.fetchMessagesCmd()().(messagesFetchedMsg)

	m.Update(newer)
	m.Update(older)
	if m.conv.Timeline.Len() != 2 {
		t.Fatalf("older response must not overwrite newer state, got %d messages", m.conv.Timeline.Len())
	}
}

func TestTickSkippedWhileComposing(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	m.openGroup(1, "one")
	tag := m.msgLoop.Arm(1)

	m.focusComposer()
	if cmd := m.handlePollTick(pollTickMsg{stream: streamMessages, tag: tag}); cmd == nil {
		t.Fatal("a skipped tick must still schedule the next one")
	}
	if next := m.msgLoop.Issue(); next.Seq != 1 {
		t.Fatalf("expected no fetch while composing, next seq %d", next.Seq)
	}

	m.blurComposer()
	m.handlePollTick(pollTickMsg{stream: streamMessages, tag: m.msgLoop.NextTick(tag)})
	if next := m.msgLoop.Issue(); next.Seq != 3 {
		t.Fatalf("expected a fetch once composing ended, next seq %d", next.Seq)
	}
}

func TestStaleTickEndsChain(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	m.openGroup(1, "one")
	old := m.msgLoop.Arm(1)
	m.openGroup(2, "two")
	if cmd := m.handlePollTick(pollTickMsg{stream: streamMessages, tag: old}); cmd != nil {
		t.Fatal("tick of the previous group should not reschedule")
	}
}

func TestSendOptimisticThenConfirmed(t *testing.T) {
	gw := &fakeGateway{nextID: 40, messages: map[types.ID][]types.Message{1: {msgAt(1, 0, "bo", "hi")}}}
	m := newTestModel(t, gw)
	openAndLoad(t, m, 1)

	m.focusComposer()
	m.input.SetValue("hello")
	cmd := m.submitMessage()
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	if m.conv.Timeline.PendingCount() != 1 {
		t.Fatal("expected provisional message before the service answers")
	}
	if m.input.Value() != "" || m.input.Focused() {
		t.Fatal("composer should be cleared and released after submit")
	}

	m.Update(cmd())
	if m.conv.Timeline.PendingCount() != 0 {
		t.Fatal("provisional message should be confirmed")
	}
	if _, ok := m.conv.Timeline.Get(41); !ok {
		t.Fatal("expected confirmed message with service id")
	}
}

func TestSendBlankDoesNothing(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	openAndLoad(t, m, 1)
	m.input.SetValue("   ")
	if cmd := m.submitMessage(); cmd != nil {
		t.Fatal("blank draft must not send")
	}
	if m.conv.Timeline.Len() != 0 {
		t.Fatal("blank draft must not add a message")
	}
}

func TestSendFailureRollsBackAndShowsStatus(t *testing.T) {
	gw := &fakeGateway{createErr: &api.APIError{Status: 400, Detail: "message too long"}}
	m := newTestModel(t, gw)
	openAndLoad(t, m, 1)

	m.input.SetValue("hello")
	m.Update(m.submitMessage()())
	if m.conv.Timeline.Len() != 0 {
		t.Fatal("failed send must leave no provisional message")
	}
	if m.status != "Not sent: message too long" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestSentResponseForClosedConversationIgnored(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	openAndLoad(t, m, 1)
	m.input.SetValue("hello")
	cmd := m.submitMessage()

	m.openGroup(1, "again")
	m.Update(cmd())
	if m.conv.Timeline.Len() != 0 {
		t.Fatal("answer for a closed conversation must not leak into the new one")
	}
}

func TestUnauthorizedPollEndsSession(t *testing.T) {
	gw := &fakeGateway{listErr: &api.APIError{Status: 401, Detail: "token expired"}}
	m := newTestModel(t, gw)
	m.openGroup(1, "one")

	_, cmd := m.Update(m.fetchMessagesCmd()())
	if !errors.Is(m.exitErr, session.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated exit, got %v", m.exitErr)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestPollFailureIsSilent(t *testing.T) {
	gw := &fakeGateway{listErr: errors.New("offline")}
	m := newTestModel(t, gw)
	m.openGroup(1, "one")
	_, cmd := m.Update(m.fetchMessagesCmd()())
	if cmd != nil || m.status != "" || m.exitErr != nil {
		t.Fatal("background poll failures are logged only")
	}
}

func TestSoundOnlyAfterInteraction(t *testing.T) {
	var beeps int
	restore := playBeep
	playBeep = func() error { beeps++; return nil }
	t.Cleanup(func() { playBeep = restore })

	gw := &fakeGateway{messages: map[types.ID][]types.Message{1: {msgAt(1, 0, "bo", "a")}}}
	m := newTestModel(t, gw)
	openAndLoad(t, m, 1)

	gw.messages[1] = append(gw.messages[1], msgAt(2, 1, "bo", "b"))
	if _, cmd := m.Update(m.fetchMessagesCmd()()); cmd != nil {
		t.Fatal("no sound before the first key press")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	gw.messages[1] = append(gw.messages[1], msgAt(3, 2, "bo", "c"))
	_, cmd := m.Update(m.fetchMessagesCmd()())
	if cmd == nil {
		t.Fatal("expected sound once the user has interacted")
	}
	if done := cmd().(soundDoneMsg); done.err != nil || beeps != 1 {
		t.Fatalf("expected one beep, got %d (%v)", beeps, done.err)
	}
}

func TestReplyFromSelection(t *testing.T) {
	gw := &fakeGateway{nextID: 9, messages: map[types.ID][]types.Message{1: {
		msgAt(1, 0, "bo", "first"),
		msgAt(2, 1, "cy", "second"),
	}}}
	m := newTestModel(t, gw)
	openAndLoad(t, m, 1)

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 1 {
		t.Fatalf("expected first message selected, got %d", m.selected)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.conv.ReplyTo() == nil || m.conv.ReplyTo().ID != 1 {
		t.Fatal("expected reply target")
	}
	if !m.input.Focused() || !m.conv.Composing() {
		t.Fatal("reply should focus the composer")
	}

	m.input.SetValue("answer")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	parent, _ := m.conv.Timeline.Get(1)
	if len(parent.RepliedBy) != 1 || !parent.RepliedBy[0].ID.IsProvisional() {
		t.Fatalf("expected provisional reply linked to parent, got %+v", parent.RepliedBy)
	}
	if m.conv.ReplyTo() != nil {
		t.Fatal("reply draft should clear on send")
	}
}

func TestEscapeCancelsReplyThenLeaves(t *testing.T) {
	gw := &fakeGateway{messages: map[types.ID][]types.Message{1: {msgAt(1, 0, "bo", "first")}}}
	m := newTestModel(t, gw)
	openAndLoad(t, m, 1)
	parent, _ := m.conv.Timeline.Get(1)
	m.startReply(parent)
	m.blurComposer()

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenChat || m.conv.ReplyTo() != nil {
		t.Fatal("first escape should only cancel the reply")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenGroups || m.msgLoop.Armed() {
		t.Fatal("second escape should return to the group list and stop polling")
	}
}

func TestCreateGroupFromList(t *testing.T) {
	gw := &fakeGateway{nextID: 20, groups: []types.Group{{ID: 1, Name: "one", MessageCount: types.IntPtr(3)}}}
	m := newTestModel(t, gw)
	m.showGroups()
	m.Update(m.fetchGroupsCmd()())

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if !m.groupInput.Focused() {
		t.Fatal("n should focus the group input")
	}
	m.groupInput.SetValue("  Friends ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	groups := m.groups.Groups()
	if len(groups) != 2 || !m.groups.IsPending(groups[1].ID) || groups[1].Name != "Friends" {
		t.Fatalf("expected provisional group, got %+v", groups)
	}

	m.Update(cmd())
	groups = m.groups.Groups()
	if groups[1].ID != 21 || m.groups.IsPending(groups[1].ID) {
		t.Fatalf("expected confirmed group, got %+v", groups)
	}
}

func TestCreateGroupBlankShowsStatus(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	m.showGroups()
	m.groupInput.Focus()
	m.groupInput.SetValue(" ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.groups.Len() != 0 {
		t.Fatal("blank name must not add a group")
	}
	if m.status != "group name is required" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestCreateGroupFailureRollsBack(t *testing.T) {
	m := newTestModel(t, &fakeGateway{groupErr: &api.APIError{Status: 400, Fields: map[string][]string{"name": {"already exists."}}}})
	m.showGroups()
	m.groupInput.Focus()
	m.groupInput.SetValue("dup")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())
	if m.groups.Len() != 0 {
		t.Fatal("failed creation must remove the provisional group")
	}
	if m.status != "Group not created: name: already exists." {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestStatusClearsOnlyLatestToast(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	m.setStatus("first")
	firstSeq := m.statusSeq
	m.setStatus("second")

	m.Update(clearStatusMsg{seq: firstSeq})
	if m.status != "second" {
		t.Fatal("an older toast timer must not clear a newer message")
	}
	m.Update(clearStatusMsg{seq: m.statusSeq})
	if m.status != "" {
		t.Fatal("expected status cleared")
	}
}
