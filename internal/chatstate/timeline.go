package chatstate

import (
	"sort"
	"strings"
	"time"

	"github.com/adamavenir/gchat/internal/types"
)

// entry is one message in the arena. Reply links are kept as ids and
// resolved when the timeline is materialized.
type entry struct {
	msg       types.Message // ReplyTo and RepliedBy are always nil here
	replyTo   types.ID
	repliedBy []types.ID
}

// Timeline is the ordered message list of one group.
//
// Messages live in an arena keyed by id. The arena also holds messages that
// are only known as a reply target or reply (nested in another message).
type Timeline struct {
	arena map[types.ID]*entry
	order []types.ID
	// pending holds provisional messages awaiting the gateway.
	pending map[types.ID]struct{}
	// attached maps a provisional id to the parents whose repliedBy it was
	// appended to, so a rollback can undo both insertions.
	attached map[types.ID][]types.ID
	ids      *TempIDs
}

// NewTimeline returns an empty timeline minting provisional ids from ids.
func NewTimeline(ids *TempIDs) *Timeline {
	if ids == nil {
		ids = &TempIDs{}
	}
	return &Timeline{
		arena:    map[types.ID]*entry{},
		pending:  map[types.ID]struct{}{},
		attached: map[types.ID][]types.ID{},
		ids:      ids,
	}
}

// Len returns the number of top-level messages.
func (t *Timeline) Len() int {
	return len(t.order)
}

// PendingCount returns how many provisional messages await confirmation.
func (t *Timeline) PendingCount() int {
	return len(t.pending)
}

// IsPending reports whether id is an unconfirmed provisional message.
func (t *Timeline) IsPending(id types.ID) bool {
	_, ok := t.pending[id]
	return ok
}

// Contains reports whether id is a top-level message.
func (t *Timeline) Contains(id types.ID) bool {
	return t.indexOf(id) >= 0
}

// Messages materializes the ordered list with nested reply links.
func (t *Timeline) Messages() []types.Message {
	out := make([]types.Message, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.materialize(id))
	}
	return out
}

// Get returns a materialized top-level message.
func (t *Timeline) Get(id types.ID) (types.Message, bool) {
	if !t.Contains(id) {
		return types.Message{}, false
	}
	return t.materialize(id), true
}

func (t *Timeline) materialize(id types.ID) types.Message {
	e := t.arena[id]
	msg := e.msg
	if e.replyTo != 0 {
		if parent, ok := t.arena[e.replyTo]; ok {
			p := parent.msg
			msg.ReplyTo = &p
		} else {
			msg.ReplyTo = &types.Message{ID: e.replyTo}
		}
	}
	if len(e.repliedBy) > 0 {
		msg.RepliedBy = make([]types.Message, 0, len(e.repliedBy))
		for _, rid := range e.repliedBy {
			if reply, ok := t.arena[rid]; ok {
				msg.RepliedBy = append(msg.RepliedBy, reply.msg)
			}
		}
	}
	return msg
}

// ApplyFetch merges a server batch into the timeline and reports whether a
// notification sound should play. Provisional messages still awaiting the
// gateway are kept.
func (t *Timeline) ApplyFetch(batch []types.Message, audioEnabled bool) bool {
	local := t.Messages()
	res := Reconcile(local, batch, audioEnabled)

	var provisional []types.Message
	for _, m := range local {
		if _, ok := t.pending[m.ID]; ok {
			provisional = append(provisional, m)
		}
	}

	t.rebuild(res.Messages)
	for _, m := range provisional {
		if t.Contains(m.ID) {
			continue
		}
		t.insertTop(m)
		t.linkNested(m)
		t.order = append(t.order, m.ID)
	}
	if len(provisional) > 0 {
		t.sortOrder()
	}
	return res.PlaySound
}

// Reset replaces the timeline with msgs, dropping all pending state.
func (t *Timeline) Reset(msgs []types.Message) {
	t.pending = map[types.ID]struct{}{}
	t.attached = map[types.ID][]types.ID{}
	t.rebuild(msgs)
}

func (t *Timeline) rebuild(msgs []types.Message) {
	t.arena = make(map[types.ID]*entry, len(msgs))
	t.order = make([]types.ID, 0, len(msgs))
	for _, m := range msgs {
		t.insertTop(m)
		t.order = append(t.order, m.ID)
	}
	for _, m := range msgs {
		t.linkNested(m)
	}
	// Attachments only survive while the parent still lists the reply.
	for tempID, parents := range t.attached {
		kept := parents[:0]
		for _, p := range parents {
			if e, ok := t.arena[p]; ok && containsID(e.repliedBy, tempID) {
				kept = append(kept, p)
			}
		}
		t.attached[tempID] = kept
	}
}

// insertTop stores m as authoritative for its id.
func (t *Timeline) insertTop(m types.Message) {
	flat := m
	flat.ReplyTo = nil
	flat.RepliedBy = nil
	e := &entry{msg: flat}
	if m.ReplyTo != nil {
		e.replyTo = m.ReplyTo.ID
	}
	for _, r := range m.RepliedBy {
		if !containsID(e.repliedBy, r.ID) {
			e.repliedBy = append(e.repliedBy, r.ID)
		}
	}
	t.arena[m.ID] = e
}

// linkNested records nested snapshots that are not top-level messages.
func (t *Timeline) linkNested(m types.Message) {
	if m.ReplyTo != nil {
		t.insertRef(*m.ReplyTo)
	}
	for _, r := range m.RepliedBy {
		t.insertRef(r)
	}
}

func (t *Timeline) insertRef(m types.Message) {
	if _, ok := t.arena[m.ID]; ok {
		return
	}
	flat := m
	flat.ReplyTo = nil
	flat.RepliedBy = nil
	t.arena[m.ID] = &entry{msg: flat}
}

// BeginSend inserts a provisional message authored by sender, replying to
// replyTo when non-nil. It returns false and changes nothing when content
// is blank.
func (t *Timeline) BeginSend(content string, sender types.Sender, replyTo *types.Message, now time.Time) (types.Message, bool) {
	if strings.TrimSpace(content) == "" {
		return types.Message{}, false
	}
	msg := types.Message{
		ID:        t.ids.Next(),
		Sender:    sender,
		Content:   content,
		Timestamp: now,
	}
	e := &entry{msg: msg}
	if replyTo != nil {
		e.replyTo = replyTo.ID
		t.insertRef(*replyTo)
		parent := t.arena[replyTo.ID]
		parent.repliedBy = append(parent.repliedBy, msg.ID)
		t.attached[msg.ID] = append(t.attached[msg.ID], replyTo.ID)
	}
	t.arena[msg.ID] = e
	t.order = append(t.order, msg.ID)
	t.pending[msg.ID] = struct{}{}
	return t.materialize(msg.ID), true
}

// ConfirmSend replaces provisional message tempID with the authoritative
// msg, keeping its position and its place in parent reply lists. If msg is
// already present (a poll delivered it first) the provisional copy is
// dropped instead. It returns false if tempID is not pending.
func (t *Timeline) ConfirmSend(tempID types.ID, msg types.Message) bool {
	if _, ok := t.pending[tempID]; !ok {
		return false
	}
	provisional := t.arena[tempID]
	parents := t.attached[tempID]
	delete(t.pending, tempID)
	delete(t.attached, tempID)

	replyTo := provisional.replyTo
	if msg.ReplyTo != nil {
		replyTo = msg.ReplyTo.ID
	}

	if t.Contains(msg.ID) {
		t.removeTop(tempID)
		for _, p := range parents {
			t.replaceReply(p, tempID, msg.ID)
		}
		delete(t.arena, tempID)
		return true
	}

	idx := t.indexOf(tempID)
	t.insertTop(msg)
	confirmed := t.arena[msg.ID]
	confirmed.replyTo = replyTo
	t.linkNested(msg)
	if idx >= 0 {
		t.order[idx] = msg.ID
	}
	for _, p := range parents {
		t.replaceReply(p, tempID, msg.ID)
	}
	delete(t.arena, tempID)
	return true
}

// RollbackSend removes provisional message tempID from the list and from
// every reply list it was attached to. It returns false if tempID is not
// pending.
func (t *Timeline) RollbackSend(tempID types.ID) bool {
	if _, ok := t.pending[tempID]; !ok {
		return false
	}
	for _, p := range t.attached[tempID] {
		if e, ok := t.arena[p]; ok {
			e.repliedBy = removeID(e.repliedBy, tempID)
		}
	}
	t.removeTop(tempID)
	delete(t.arena, tempID)
	delete(t.pending, tempID)
	delete(t.attached, tempID)
	return true
}

func (t *Timeline) replaceReply(parentID, from, to types.ID) {
	e, ok := t.arena[parentID]
	if !ok {
		return
	}
	if containsID(e.repliedBy, to) {
		e.repliedBy = removeID(e.repliedBy, from)
		return
	}
	for i, id := range e.repliedBy {
		if id == from {
			e.repliedBy[i] = to
			return
		}
	}
	e.repliedBy = append(e.repliedBy, to)
}

func (t *Timeline) removeTop(id types.ID) {
	if idx := t.indexOf(id); idx >= 0 {
		t.order = append(t.order[:idx], t.order[idx+1:]...)
	}
}

func (t *Timeline) indexOf(id types.ID) int {
	for i, existing := range t.order {
		if existing == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) sortOrder() {
	sort.SliceStable(t.order, func(i, j int) bool {
		return t.arena[t.order[i]].msg.Timestamp.Before(t.arena[t.order[j]].msg.Timestamp)
	})
}

func containsID(ids []types.ID, id types.ID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []types.ID, id types.ID) []types.ID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
