// Package chatstate holds the client-side view of a group conversation and
// the group list: merging polled server state into local state and the
// optimistic insert/confirm/rollback bookkeeping for user mutations.
//
// Nothing in this package locks. A Timeline or GroupList is owned by one
// goroutine (the TUI update loop or a headless runner).
package chatstate

import (
	"sort"

	"github.com/adamavenir/gchat/internal/types"
)

// Result is the outcome of merging a server batch into local state.
type Result struct {
	Messages []types.Message
	// PlaySound is set when audio is enabled and the server returned more
	// messages than were held locally.
	PlaySound bool
}

// Reconcile merges a freshly fetched server batch into the local message
// list. The server is authoritative for every field except repliedBy, which
// becomes the server's replies followed by any locally known replies the
// server did not report. Only messages present in the batch are returned;
// the output is stable-sorted by timestamp.
func Reconcile(local, batch []types.Message, audioEnabled bool) Result {
	localByID := make(map[types.ID]int, len(local))
	for i, m := range local {
		if _, seen := localByID[m.ID]; !seen {
			localByID[m.ID] = i
		}
	}

	out := make([]types.Message, 0, len(batch))
	position := make(map[types.ID]int, len(batch))
	for _, srv := range batch {
		merged := cloneMessage(srv)
		if i, ok := localByID[srv.ID]; ok {
			merged.RepliedBy = mergeReplies(srv.RepliedBy, local[i].RepliedBy)
		} else {
			merged.RepliedBy = mergeReplies(srv.RepliedBy, nil)
		}
		// A repeated id in one batch keeps its first position.
		if at, dup := position[srv.ID]; dup {
			merged.RepliedBy = mergeReplies(merged.RepliedBy, out[at].RepliedBy)
			out[at] = merged
			continue
		}
		position[srv.ID] = len(out)
		out = append(out, merged)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return Result{
		Messages:  out,
		PlaySound: audioEnabled && len(batch) > len(local),
	}
}

// mergeReplies returns server replies then local-only replies, deduped by id.
func mergeReplies(server, local []types.Message) []types.Message {
	if len(server) == 0 && len(local) == 0 {
		return nil
	}
	seen := make(map[types.ID]struct{}, len(server)+len(local))
	out := make([]types.Message, 0, len(server)+len(local))
	for _, list := range [][]types.Message{server, local} {
		for _, r := range list {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

func cloneMessage(m types.Message) types.Message {
	out := m
	if m.ReplyTo != nil {
		parent := *m.ReplyTo
		out.ReplyTo = &parent
	}
	if m.RepliedBy != nil {
		out.RepliedBy = append([]types.Message(nil), m.RepliedBy...)
	}
	return out
}
