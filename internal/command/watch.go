package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adamavenir/gchat/internal/api"
	"github.com/adamavenir/gchat/internal/chatstate"
	"github.com/adamavenir/gchat/internal/poll"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [group]",
		Short: "Stream a group's messages",
		Long:  "Poll a group and print messages as they arrive. Without a group, the last group used is watched.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			groupID, err := ctx.resolveGroup(args)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			noSound, _ := cmd.Flags().GetBool("no-sound")
			last, _ := cmd.Flags().GetInt("last")

			conv := chatstate.NewConversation(chatstate.ConversationOptions{
				Group:   groupID,
				Gateway: ctx.Client,
				Sender:  ctx.Session.Sender(),
				Audio:   ctx.Config.Sound && !noSound,
				Logger:  ctx.Logger,
			})

			runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if !ctx.JSONMode {
				name := ctx.Client.GroupName(runCtx, groupID)
				fmt.Fprintf(out, "--- watching %s (Ctrl+C to stop) ---\n", name)
			}

			w := &watcher{conv: conv, last: last, jsonMode: ctx.JSONMode, out: out, logger: ctx.Logger}
			var authErr error
			runner := &poll.Runner{
				Interval: ctx.Config.MessagePoll.Std(),
				Logger:   ctx.Logger,
				Fetch: func(fctx context.Context) error {
					err := w.poll(fctx)
					if api.IsUnauthorized(err) {
						authErr = ctx.checkAuth(err)
						stop()
					}
					return err
				},
			}
			err = runner.Run(runCtx)
			if authErr != nil {
				return writeCommandError(cmd, authErr)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("no-sound", false, "do not beep on new messages")
	cmd.Flags().Int("last", 10, "show the last N messages before streaming (0 for none)")

	return cmd
}

// Swapped out in tests.
var watchBeep = func() error {
	return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
}

// watcher prints messages the first time they are seen.
type watcher struct {
	conv     *chatstate.Conversation
	seen     map[types.ID]struct{}
	last     int
	jsonMode bool
	out      io.Writer
	logger   zerolog.Logger
	primed   bool
}

func (w *watcher) poll(ctx context.Context) error {
	playSound, err := w.conv.Refresh(ctx)
	if err != nil {
		return err
	}
	if w.seen == nil {
		w.seen = make(map[types.ID]struct{})
	}

	msgs := w.conv.Timeline.Messages()
	var fresh []types.Message
	for _, msg := range msgs {
		if _, ok := w.seen[msg.ID]; ok {
			continue
		}
		w.seen[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}
	if !w.primed {
		w.primed = true
		playSound = false
		if keep := max(w.last, 0); len(fresh) > keep {
			fresh = fresh[len(fresh)-keep:]
		}
	}

	out := w.out
	now := time.Now()
	for _, msg := range fresh {
		if w.jsonMode {
			if err := json.NewEncoder(out).Encode(msg); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, FormatMessage(msg, now))
	}
	if playSound {
		if err := watchBeep(); err != nil {
			w.logger.Debug().Err(err).Msg("beep failed")
		}
	}
	return nil
}
