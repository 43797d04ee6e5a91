package command

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

const AppName = "gchat"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "gchat - terminal group chat",
		Long:          "gchat is a terminal client for a REST group-chat service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("api", "", "chat service base URL (overrides config)")
	cmd.PersistentFlags().String("config", "", "config file (default $GCHAT_HOME/config.yaml)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewLoginCmd(),
		NewRegisterCmd(),
		NewLogoutCmd(),
		NewProfileCmd(),
		NewGroupsCmd(),
		NewMessagesCmd(),
		NewPostCmd(),
		NewWatchCmd(),
		NewChatCmd(),
		NewConfigCmd(),
	)

	return cmd
}

// Execute runs the root command. Every returned error has been printed.
func Execute() error {
	cmd := NewRootCmd(Version)
	err := cmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		return writeCommandError(cmd, err)
	}
	return err
}
