package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/adamavenir/gchat/internal/core"
	"github.com/adamavenir/gchat/internal/db"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			stored, err := db.GetAllConfig(ctx.Store.DB())
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return json.NewEncoder(out).Encode(map[string]any{
					"config": ctx.Config,
					"path":   ctx.Config.Path,
					"stored": stored,
				})
			}

			source := ctx.Config.Path
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintf(out, "# source: %s\n", source)
			data, err := yaml.Marshal(ctx.Config)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprint(out, string(data))
			if len(stored) > 0 {
				fmt.Fprintln(out, "# stored")
				for _, entry := range stored {
					fmt.Fprintf(out, "# %s: %s\n", entry.Key, entry.Value)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(NewConfigInitCmd())
	return cmd
}

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				defaultPath, err := core.DefaultConfigPath()
				if err != nil {
					return writeCommandError(cmd, err)
				}
				path = defaultPath
			}

			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return writeCommandError(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", path))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return writeCommandError(cmd, err)
			}

			if err := core.WriteConfig(path, core.DefaultConfig()); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "overwrite an existing file")

	return cmd
}
