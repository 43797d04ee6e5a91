package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/gchat/internal/chatstate"
	"github.com/adamavenir/gchat/internal/core"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/spf13/cobra"
)

// NewMessagesCmd creates the messages command.
func NewMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages [group]",
		Short: "Show a group's messages",
		Long:  "Show a group's messages. Without a group, the last group used is shown.",
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
			last, _ := cmd.Flags().GetInt("last")
			since, _ := cmd.Flags().GetString("since")
			var cutoff time.Time
			if since != "" {
				if cutoff, err = core.ParseTimeExpression(since, time.Now()); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			conv := chatstate.NewConversation(chatstate.ConversationOptions{
				Group:   groupID,
				Gateway: ctx.Client,
				Sender:  ctx.Session.Sender(),
				Logger:  ctx.Logger,
			})
			if _, err := conv.Refresh(context.Background()); err != nil {
				return writeCommandError(cmd, ctx.checkAuth(err))
			}
			msgs := conv.Timeline.Messages()
			if !cutoff.IsZero() {
				kept := msgs[:0]
				for _, msg := range msgs {
					if !msg.Timestamp.Before(cutoff) {
						kept = append(kept, msg)
					}
				}
				msgs = kept
			}
			if last > 0 && len(msgs) > last {
				msgs = msgs[len(msgs)-last:]
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(msgs)
			}
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "No messages")
				return nil
			}
			printMessages(out, msgs, time.Now())
			return nil
		},
	}

	cmd.Flags().Int("last", 0, "show only the last N messages")
	cmd.Flags().String("since", "", "only messages since a time (30m, 2h, 3d, today, yesterday, 2006-01-02)")

	return cmd
}

// NewPostCmd creates the post command.
func NewPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <group> <message>",
		Short: "Post a message to a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			groupID, err := ctx.resolveGroup(args[:1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			content := strings.Join(args[1:], " ")
			if strings.TrimSpace(content) == "" {
				return writeCommandError(cmd, fmt.Errorf("message is empty"))
			}

			conv := chatstate.NewConversation(chatstate.ConversationOptions{
				Group:   groupID,
				Gateway: ctx.Client,
				Sender:  ctx.Session.Sender(),
				Logger:  ctx.Logger,
			})

			replyTo, _ := cmd.Flags().GetString("reply-to")
			if replyTo != "" {
				parentID, err := types.ParseID(strings.TrimPrefix(strings.TrimSpace(replyTo), "#"))
				if err != nil || parentID <= 0 {
					return writeCommandError(cmd, fmt.Errorf("invalid message id: %s", replyTo))
				}
				if _, err := conv.Refresh(context.Background()); err != nil {
					return writeCommandError(cmd, ctx.checkAuth(err))
				}
				parent, ok := conv.Timeline.Get(parentID)
				if !ok {
					return writeCommandError(cmd, fmt.Errorf("message #%s not found in group #%s", parentID, groupID))
				}
				if err := conv.SetReplyTo(parent); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			created, err := conv.Send(context.Background(), content)
			if err != nil {
				return writeCommandError(cmd, ctx.checkAuth(err))
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted #%s to group #%s\n", created.ID, groupID)
			return nil
		},
	}

	cmd.Flags().String("reply-to", "", "reply to message id")

	return cmd
}
