package poll

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FetchFunc performs one poll.
type FetchFunc func(ctx context.Context) error

// Runner drives a FetchFunc on a ticker outside the TUI. A failed fetch is
// logged and tried again on the next tick.
type Runner struct {
	Interval time.Duration
	Fetch    FetchFunc
	// Suspended, if set, skips ticks while it returns true.
	Suspended func() bool
	Logger    zerolog.Logger
}

// Run polls once immediately and then every Interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.once(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) once(ctx context.Context) {
	if r.Suspended != nil && r.Suspended() {
		r.Logger.Debug().Msg("poll skipped while suspended")
		return
	}
	if err := r.Fetch(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.Logger.Warn().Err(err).Msg("poll failed")
	}
}
