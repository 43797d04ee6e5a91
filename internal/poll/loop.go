// Package poll drives periodic re-fetching. A Loop tags every tick and every
// fetch with the generation it was issued in; switching target bumps the
// generation so ticks and responses from the previous target are dropped.
package poll

import (
	"time"

	"github.com/adamavenir/gchat/internal/types"
)

// Tag identifies a tick or an issued fetch.
type Tag struct {
	Target     types.ID
	Generation uint64
	Seq        uint64
}

// Loop is the timer state for one poll stream (messages of the open
// group, or the group list). It is not safe for concurrent use.
type Loop struct {
	interval   time.Duration
	suspended  func() bool
	target     types.ID
	generation uint64
	armed      bool
	issued     uint64
	applied    uint64
}

// NewLoop returns a disarmed loop. suspended, if non-nil, is consulted on
// every tick; a tick that finds it true is skipped.
func NewLoop(interval time.Duration, suspended func() bool) *Loop {
	return &Loop{interval: interval, suspended: suspended}
}

// Interval returns the tick period.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Target returns the armed target.
func (l *Loop) Target() types.ID {
	return l.target
}

// Armed reports whether the loop is running.
func (l *Loop) Armed() bool {
	return l.armed
}

// Arm starts a fresh generation against target and returns the tag of its
// first tick. Ticks and fetches of earlier generations become stale.
func (l *Loop) Arm(target types.ID) Tag {
	l.generation++
	l.target = target
	l.armed = true
	l.issued = 0
	l.applied = 0
	return Tag{Target: target, Generation: l.generation}
}

// Stop disarms the loop; every outstanding tag becomes stale.
func (l *Loop) Stop() {
	l.generation++
	l.armed = false
}

// Current reports whether tag belongs to the running generation.
func (l *Loop) Current(tag Tag) bool {
	return l.armed && tag.Generation == l.generation && tag.Target == l.target
}

// Suspended reports whether ticks are currently being skipped.
func (l *Loop) Suspended() bool {
	return l.suspended != nil && l.suspended()
}

// Decision is what to do with a tick.
type Decision int

const (
	// Drop means the tick is stale; its chain ends.
	Drop Decision = iota
	// Skip means the loop is suspended; schedule the next tick only.
	Skip
	// Fetch means issue a fetch and schedule the next tick.
	Fetch
)

// OnTick classifies a tick.
func (l *Loop) OnTick(tag Tag) Decision {
	if !l.Current(tag) {
		return Drop
	}
	if l.Suspended() {
		return Skip
	}
	return Fetch
}

// Issue tags a fetch in the running generation.
func (l *Loop) Issue() Tag {
	l.issued++
	return Tag{Target: l.target, Generation: l.generation, Seq: l.issued}
}

// Accept reports whether a fetch response tagged tag should be applied: it
// must belong to the running generation and be newer than any response
// already applied. Accepting records it as the newest.
func (l *Loop) Accept(tag Tag) bool {
	if !l.Current(tag) || tag.Seq <= l.applied {
		return false
	}
	l.applied = tag.Seq
	return true
}

// NextTick returns the tag for the tick following tag.
func (l *Loop) NextTick(tag Tag) Tag {
	return Tag{Target: tag.Target, Generation: tag.Generation}
}
