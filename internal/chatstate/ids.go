package chatstate

import (
	"sync/atomic"

	"github.com/adamavenir/gchat/internal/types"
)

// TempIDs mints provisional ids. They are negative and strictly decreasing,
// so they never collide with server ids or with each other.
type TempIDs struct {
	last atomic.Int64
}

// Next returns a fresh provisional id.
func (g *TempIDs) Next() types.ID {
	return types.ID(g.last.Add(-1))
}
