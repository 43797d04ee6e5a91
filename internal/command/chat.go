package command

import (
	"errors"

	"github.com/adamavenir/gchat/internal/chat"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/spf13/cobra"
)

// NewChatCmd creates the interactive chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [group]",
		Short: "Open the interactive chat",
		Long:  "Open the interactive chat. With a group, its conversation opens directly; otherwise the group list is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if ctx.JSONMode {
				return writeCommandError(cmd, errors.New("--json is not supported by the interactive chat"))
			}

			var group types.ID
			if len(args) > 0 {
				if group, err = ctx.resolveGroup(args); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			cfg := ctx.Config
			if noSound, _ := cmd.Flags().GetBool("no-sound"); noSound {
				cfg.Sound = false
			}
			if notify, _ := cmd.Flags().GetBool("notify"); notify {
				cfg.NotifyDesktop = true
			}

			err = chat.Run(chat.Options{
				Gateway: ctx.Client,
				Session: ctx.Session,
				Store:   ctx.Store,
				Config:  cfg,
				Logger:  ctx.Logger,
				Group:   group,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("no-sound", false, "do not beep on new messages")
	cmd.Flags().Bool("notify", false, "show desktop notifications for new messages")

	return cmd
}
