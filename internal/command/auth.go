package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adamavenir/gchat/internal/session"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			p := newPrompter(cmd)
			username, err := p.valueOrPrompt(cmd, "username", "Username", false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			password, err := p.valueOrPrompt(cmd, "password", "Password", true)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			creds := types.Credentials{Username: username, Password: password}
			tokens, err := ctx.Client.Login(context.Background(), creds)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			sess := session.New(tokens, strings.TrimSpace(username))
			if err := ctx.Store.Save(sess); err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Logger.Info().Str("username", sess.Username).Msg("logged in")

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"username": sess.Username,
					"user_id":  sess.UserID,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as @%s\n", sess.DisplayName())
			return nil
		},
	}

	cmd.Flags().String("username", "", "username (prompted if omitted)")
	cmd.Flags().String("password", "", "password (prompted without echo if omitted)")

	return cmd
}

// NewRegisterCmd creates the register command.
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			p := newPrompter(cmd)
			var reg types.Registration
			if reg.Username, err = p.valueOrPrompt(cmd, "username", "Username", false); err != nil {
				return writeCommandError(cmd, err)
			}
			if reg.Email, err = p.valueOrPrompt(cmd, "email", "Email", false); err != nil {
				return writeCommandError(cmd, err)
			}
			if reg.Password, err = p.valueOrPrompt(cmd, "password", "Password", true); err != nil {
				return writeCommandError(cmd, err)
			}
			if reg.Password2, err = p.valueOrPrompt(cmd, "password", "Confirm password", true); err != nil {
				return writeCommandError(cmd, err)
			}

			if err := ctx.Client.Register(context.Background(), reg); err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Logger.Info().Str("username", reg.Username).Msg("registered")

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"username": strings.TrimSpace(reg.Username)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Sign in with: %s login --username %s\n", AppName, strings.TrimSpace(reg.Username))
			return nil
		},
	}

	cmd.Flags().String("username", "", "username")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("password", "", "password (used for both password fields)")

	return cmd
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := ctx.Store.Clear(); err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Logger.Info().Msg("logged out")
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]bool{"logged_out": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewProfileCmd creates the profile command.
func NewProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			user, err := ctx.Client.Me(context.Background())
			if err != nil {
				return writeCommandError(cmd, ctx.checkAuth(err))
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(user)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "@%s (#%s)\n", user.Username, user.ID)
			if name := strings.TrimSpace(user.FirstName + " " + user.LastName); name != "" {
				fmt.Fprintf(out, "  name:  %s\n", name)
			}
			if user.Email != "" {
				fmt.Fprintf(out, "  email: %s\n", user.Email)
			}
			return nil
		},
	}
}
