package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adamavenir/gchat/internal/chatstate"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/dustin/go-humanize/english"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
)

// NewGroupsCmd creates the groups command.
func NewGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			pattern, _ := cmd.Flags().GetString("match")
			withCounts, _ := cmd.Flags().GetBool("counts")

			var groups []types.Group
			if withCounts {
				groups, err = ctx.Client.ListGroupsWithCounts(context.Background())
			} else {
				groups, err = ctx.Client.ListGroups(context.Background())
			}
			if err != nil {
				return writeCommandError(cmd, ctx.checkAuth(err))
			}

			groups, err = filterGroups(groups, pattern)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(groups)
			}
			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "No groups")
				return nil
			}
			for _, g := range groups {
				line := fmt.Sprintf("%s  %s", styled(idStyle, "#"+g.ID.String()), g.Name)
				var meta []string
				if g.MessageCount != nil {
					meta = append(meta, english.Plural(g.Count(), "message", ""))
				}
				if g.Creator != "" {
					meta = append(meta, "by @"+g.Creator)
				}
				if len(meta) > 0 {
					line += "  " + styled(dimStyle, strings.Join(meta, " · "))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().String("match", "", "only show groups whose name matches a glob (case-insensitive)")
	cmd.Flags().Bool("counts", false, "include message counts")

	cmd.AddCommand(NewGroupCreateCmd())
	return cmd
}

// NewGroupCreateCmd creates the groups create command.
func NewGroupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			list := chatstate.NewGroupList(nil)
			name := strings.Join(args, " ")
			group, err := list.Create(context.Background(), ctx.Client, name, ctx.Session.DisplayName())
			if err != nil {
				return writeCommandError(cmd, ctx.checkAuth(err))
			}
			ctx.rememberGroup(group.ID)

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(group)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created group #%s %s\n", group.ID, group.Name)
			return nil
		},
	}
}

func filterGroups(groups []types.Group, pattern string) ([]types.Group, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return groups, nil
	}
	matcher, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid --match pattern: %w", err)
	}
	matched := make([]types.Group, 0, len(groups))
	for _, g := range groups {
		if matcher.Match(strings.ToLower(g.Name)) {
			matched = append(matched, g)
		}
	}
	return matched, nil
}
