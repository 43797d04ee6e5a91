package command

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/adamavenir/gchat/internal/api"
	"github.com/adamavenir/gchat/internal/chat"
	"github.com/adamavenir/gchat/internal/session"
	"github.com/spf13/cobra"
)

// reportedError marks an error already written to stderr.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: "+hint)
	}

	return &reportedError{err: err}
}

func errorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case api.IsUnauthorized(err), errors.Is(err, session.ErrNotAuthenticated):
		return "Sign in with: " + AppName + " login"
	case errors.Is(err, chat.ErrSessionChanged):
		return "Restart " + AppName + " to continue as the new user"
	case isConnectionError(err):
		return "Is the chat service running? Set its address with --api or GCHAT_API_URL"
	}
	return ""
}

func isConnectionError(err error) bool {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return false
	}
	var opErr *net.OpError
	return errors.As(urlErr.Err, &opErr)
}
