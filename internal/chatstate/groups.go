package chatstate

import (
	"context"
	"errors"
	"strings"

	"github.com/adamavenir/gchat/internal/types"
)

// ErrEmptyGroupName is returned for a blank group name.
var ErrEmptyGroupName = errors.New("group name is required")

// GroupCreator creates groups on the chat service.
type GroupCreator interface {
	CreateGroup(ctx context.Context, name string) (types.Group, error)
}

// GroupList is the local list of groups with optimistic creation.
type GroupList struct {
	groups  []types.Group
	pending map[types.ID]struct{}
	ids     *TempIDs
}

// NewGroupList returns an empty list.
func NewGroupList(ids *TempIDs) *GroupList {
	if ids == nil {
		ids = &TempIDs{}
	}
	return &GroupList{pending: map[types.ID]struct{}{}, ids: ids}
}

// Groups returns a copy of the list.
func (l *GroupList) Groups() []types.Group {
	return append([]types.Group(nil), l.groups...)
}

// Len returns the number of groups.
func (l *GroupList) Len() int {
	return len(l.groups)
}

// IsPending reports whether id is a provisional group.
func (l *GroupList) IsPending(id types.ID) bool {
	_, ok := l.pending[id]
	return ok
}

// Find returns the group with id.
func (l *GroupList) Find(id types.ID) (types.Group, bool) {
	if i := l.indexOf(id); i >= 0 {
		return l.groups[i], true
	}
	return types.Group{}, false
}

// BeginCreate appends a provisional group. A blank name returns
// ErrEmptyGroupName and leaves the list unchanged.
func (l *GroupList) BeginCreate(name, creator string) (types.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Group{}, ErrEmptyGroupName
	}
	g := types.Group{
		ID:           l.ids.Next(),
		Name:         name,
		Creator:      creator,
		MessageCount: types.IntPtr(0),
	}
	l.groups = append(l.groups, g)
	l.pending[g.ID] = struct{}{}
	return g, nil
}

// ConfirmCreate replaces provisional group tempID with g. A group that has
// no messages yet starts with a count of zero.
func (l *GroupList) ConfirmCreate(tempID types.ID, g types.Group) bool {
	if _, ok := l.pending[tempID]; !ok {
		return false
	}
	delete(l.pending, tempID)
	if g.MessageCount == nil {
		g.MessageCount = types.IntPtr(0)
	}
	idx := l.indexOf(tempID)
	if l.indexOf(g.ID) >= 0 {
		if idx >= 0 {
			l.groups = append(l.groups[:idx], l.groups[idx+1:]...)
		}
		return true
	}
	if idx >= 0 {
		l.groups[idx] = g
	} else {
		l.groups = append(l.groups, g)
	}
	return true
}

// RollbackCreate removes provisional group tempID.
func (l *GroupList) RollbackCreate(tempID types.ID) bool {
	if _, ok := l.pending[tempID]; !ok {
		return false
	}
	delete(l.pending, tempID)
	if idx := l.indexOf(tempID); idx >= 0 {
		l.groups = append(l.groups[:idx], l.groups[idx+1:]...)
	}
	return true
}

// ApplyFetch replaces the list with the server's groups, keeping known
// message counts for groups the batch did not annotate and keeping
// provisional groups at the end.
func (l *GroupList) ApplyFetch(batch []types.Group) {
	counts := make(map[types.ID]*int, len(l.groups))
	var provisional []types.Group
	for _, g := range l.groups {
		if _, ok := l.pending[g.ID]; ok {
			provisional = append(provisional, g)
			continue
		}
		counts[g.ID] = g.MessageCount
	}

	next := make([]types.Group, 0, len(batch)+len(provisional))
	seen := make(map[types.ID]struct{}, len(batch))
	for _, g := range batch {
		if _, dup := seen[g.ID]; dup {
			continue
		}
		seen[g.ID] = struct{}{}
		if g.MessageCount == nil {
			g.MessageCount = counts[g.ID]
		}
		next = append(next, g)
	}
	l.groups = append(next, provisional...)
}

// Create runs the full optimistic creation against gw.
func (l *GroupList) Create(ctx context.Context, gw GroupCreator, name, creator string) (types.Group, error) {
	provisional, err := l.BeginCreate(name, creator)
	if err != nil {
		return types.Group{}, err
	}
	created, err := gw.CreateGroup(ctx, provisional.Name)
	if err != nil {
		l.RollbackCreate(provisional.ID)
		return types.Group{}, err
	}
	l.ConfirmCreate(provisional.ID, created)
	return created, nil
}

func (l *GroupList) indexOf(id types.ID) int {
	for i, g := range l.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}
