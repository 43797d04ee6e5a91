package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func isTTY(file *os.File) bool {
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// prompter reads answers from the command's input. Secrets are read without
// echo when the input is a terminal.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, out: cmd.ErrOrStderr(), reader: bufio.NewReader(in)}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	text, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && isTTY(f) {
		fmt.Fprintf(p.out, "%s: ", label)
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	text, err := p.line(label)
	if err != nil {
		return "", err
	}
	return text, nil
}

// valueOrPrompt returns the flag value if set, otherwise asks.
func (p *prompter) valueOrPrompt(cmd *cobra.Command, flag, label string, secret bool) (string, error) {
	if value, _ := cmd.Flags().GetString(flag); value != "" {
		return value, nil
	}
	if secret {
		return p.secret(label)
	}
	return p.line(label)
}
