package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/gchat/internal/api"
	"github.com/adamavenir/gchat/internal/api/apitest"
	"github.com/adamavenir/gchat/internal/chat"
	"github.com/adamavenir/gchat/internal/chatstate"
	"github.com/adamavenir/gchat/internal/session"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// setupHome isolates state and config from the developer's machine.
func setupHome(t *testing.T) {
	t.Helper()
	t.Setenv("GCHAT_HOME", t.TempDir())
	t.Setenv("GCHAT_API_URL", "")
	t.Setenv("GCHAT_SOUND", "")
	t.Setenv("GCHAT_LOG_LEVEL", "")
	t.Setenv("NO_COLOR", "1")
}

func run(t *testing.T, srv *apitest.Server, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"--api", srv.URL}, args...)
	return executeCommand(NewRootCmd("test"), full...)
}

func TestRootCommandVersion(t *testing.T) {
	cmd := NewRootCmd("test")

	output, err := executeCommand(cmd, "--version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(output, "gchat version test") {
		t.Fatalf("expected version output, got %q", output)
	}
}

func TestRootCommandHelp(t *testing.T) {
	cmd := NewRootCmd("test")

	output, err := executeCommand(cmd)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(output, "terminal client") {
		t.Fatalf("expected help output, got %q", output)
	}
}

func TestLoginPostAndList(t *testing.T) {
	setupHome(t)
	srv := apitest.New(t)
	srv.AddUser("ana", "hunter2")

	out, err := run(t, srv, "login", "--username", "ana", "--password", "hunter2")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Logged in as @ana") {
		t.Fatalf("unexpected login output %q", out)
	}

	out, err = run(t, srv, "--json", "groups", "create", "general")
	if err != nil {
		t.Fatalf("create group: %v\n%s", err, out)
	}
	var group types.Group
	if err := json.Unmarshal([]byte(out), &group); err != nil {
		t.Fatalf("decode group: %v\n%s", err, out)
	}
	if group.Name != "general" || group.Creator != "ana" {
		t.Fatalf("unexpected group %+v", group)
	}

	groupArg := "#" + group.ID.String()
	out, err = run(t, srv, "--json", "post", groupArg, "hello", "there")
	if err != nil {
		t.Fatalf("post: %v\n%s", err, out)
	}
	var posted types.Message
	if err := json.Unmarshal([]byte(out), &posted); err != nil {
		t.Fatalf("decode message: %v\n%s", err, out)
	}
	if posted.Content != "hello there" || posted.ID <= 0 {
		t.Fatalf("unexpected posted message %+v", posted)
	}

	out, err = run(t, srv, "post", groupArg, "--reply-to", posted.ID.String(), "welcome")
	if err != nil {
		t.Fatalf("reply: %v\n%s", err, out)
	}

	// The last group is remembered, so no argument is needed.
	out, err = run(t, srv, "--json", "messages")
	if err != nil {
		t.Fatalf("messages: %v\n%s", err, out)
	}
	var msgs []types.Message
	if err := json.Unmarshal([]byte(out), &msgs); err != nil {
		t.Fatalf("decode messages: %v\n%s", err, out)
	}
	if len(msgs) != 2 || msgs[0].ID != posted.ID {
		t.Fatalf("expected the post and its reply, got %+v", msgs)
	}
	if len(msgs[0].RepliedBy) != 1 || msgs[0].RepliedBy[0].Content != "welcome" {
		t.Fatalf("expected nested reply, got %+v", msgs[0].RepliedBy)
	}
	if msgs[1].ReplyTo == nil || msgs[1].ReplyTo.ID != posted.ID {
		t.Fatalf("expected reply context on the reply, got %+v", msgs[1])
	}

	out, err = run(t, srv, "messages", groupArg)
	if err != nil {
		t.Fatalf("messages text: %v\n%s", err, out)
	}
	if !strings.Contains(out, "@ana") || !strings.Contains(out, "hello there") {
		t.Fatalf("unexpected text output %q", out)
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	setupHome(t)
	srv := apitest.New(t)

	out, err := run(t, srv, "groups")
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if !strings.Contains(out, "Hint: Sign in with: gchat login") {
		t.Fatalf("expected login hint, got %q", out)
	}
	if srv.Hits(apitest.RouteListGroups) != 0 {
		t.Fatalf("no request should be made without a session")
	}
}

func TestRejectedSessionIsCleared(t *testing.T) {
	setupHome(t)
	srv := apitest.New(t)
	srv.AddUser("ana", "hunter2")

	if out, err := run(t, srv, "login", "--username", "ana", "--password", "hunter2"); err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}

	srv.Fail(apitest.RouteListGroups, http.StatusUnauthorized, `{"detail":"Given token not valid for any token type"}`)
	if _, err := run(t, srv, "groups"); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	srv.Recover(apitest.RouteListGroups)
	if _, err := run(t, srv, "groups"); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected the session to be forgotten, got %v", err)
	}
}

func TestGroupsMatch(t *testing.T) {
	setupHome(t)
	srv := apitest.New(t)
	srv.AddUser("ana", "hunter2")
	srv.SeedGroup("Go Lovers", "bo")
	srv.SeedGroup("gardening", "cy")
	srv.SeedGroup("music", "ana")

	if out, err := run(t, srv, "login", "--username", "ana", "--password", "hunter2"); err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	out, err := run(t, srv, "groups", "--match", "g*")
	if err != nil {
		t.Fatalf("groups: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Go Lovers") || !strings.Contains(out, "gardening") || strings.Contains(out, "music") {
		t.Fatalf("unexpected filtered groups %q", out)
	}
}

func TestChatRejectsJSON(t *testing.T) {
	setupHome(t)
	srv := apitest.New(t)
	srv.AddUser("ana", "hunter2")
	if out, err := run(t, srv, "login", "--username", "ana", "--password", "hunter2"); err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}

	out, err := run(t, srv, "--json", "chat")
	if err == nil || !strings.Contains(out, "--json is not supported") {
		t.Fatalf("expected --json to be rejected, got %v %q", err, out)
	}
}

func TestFilterGroups(t *testing.T) {
	groups := []types.Group{
		{ID: 1, Name: "General"},
		{ID: 2, Name: "random"},
		{ID: 3, Name: "gen-z"},
	}
	tests := []struct {
		name    string
		pattern string
		want    []types.ID
		wantErr bool
	}{
		{name: "empty keeps all", pattern: "  ", want: []types.ID{1, 2, 3}},
		{name: "case-insensitive prefix", pattern: "GEN*", want: []types.ID{1, 3}},
		{name: "single char", pattern: "r?ndom", want: []types.ID{2}},
		{name: "no match", pattern: "zzz", want: []types.ID{}},
		{name: "invalid", pattern: "[", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterGroups(groups, tt.pattern)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d groups, want %d", len(got), len(tt.want))
			}
			for i, g := range got {
				if g.ID != tt.want[i] {
					t.Fatalf("group %d: got #%s, want #%s", i, g.ID, tt.want[i])
				}
			}
		})
	}
}

func TestErrorHint(t *testing.T) {
	connErr := &url.Error{Op: "Get", URL: "http://localhost:1", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "signed out", err: fmt.Errorf("load: %w", session.ErrNotAuthenticated), want: "Sign in with: gchat login"},
		{name: "unauthorized", err: &api.APIError{Status: http.StatusUnauthorized}, want: "Sign in with: gchat login"},
		{name: "session changed", err: chat.ErrSessionChanged, want: "Restart gchat to continue as the new user"},
		{name: "connection", err: connErr, want: "Is the chat service running? Set its address with --api or GCHAT_API_URL"},
		{name: "other", err: errors.New("boom"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorHint(tt.err); got != tt.want {
				t.Fatalf("errorHint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	noColor = true
	t.Cleanup(func() { noColor = false })

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	parent := types.Message{ID: 3, Sender: types.Sender{Username: "bo"}, Content: "what's   for\nlunch"}
	msg := types.Message{
		ID:        7,
		Sender:    types.Sender{Username: "ana"},
		Content:   "tacos\nagain",
		Timestamp: now.Add(-2 * time.Minute),
		ReplyTo:   &parent,
		RepliedBy: []types.Message{{ID: 9}, {ID: 11}},
	}

	got := FormatMessage(msg, now)
	for _, want := range []string{
		"#7 ",
		"@ana 2 minutes ago",
		"  ↪ #3 @bo: what's for lunch",
		"  tacos\n  again\n",
		"  ↩ #9 #11",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in\n%s", want, got)
		}
	}
}

func TestWatcherPollsOnlyNewMessages(t *testing.T) {
	tests := []struct {
		name      string
		last      int
		jsonMode  bool
		wantFirst []string
	}{
		{name: "last trims first batch", last: 2, wantFirst: []string{"two", "three"}},
		{name: "last zero prints nothing old", last: 0, wantFirst: nil},
		{name: "last above batch size", last: 10, wantFirst: []string{"one", "two", "three"}},
		{name: "json lines", last: 1, jsonMode: true, wantFirst: []string{"three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beeps := 0
			prev := watchBeep
			watchBeep = func() error {
				beeps++
				return nil
			}
			t.Cleanup(func() { watchBeep = prev })

			srv := apitest.New(t)
			group := srv.SeedGroup("general", "bo")
			for _, content := range []string{"one", "two", "three"} {
				srv.SeedMessage(group.ID, "bo", content, 0)
			}
			client, err := api.NewClient(api.Options{BaseURL: srv.URL, Token: srv.Token("ana"), Logger: zerolog.Nop()})
			if err != nil {
				t.Fatalf("client: %v", err)
			}
			conv := chatstate.NewConversation(chatstate.ConversationOptions{
				Group:   group.ID,
				Gateway: client,
				Sender:  types.Sender{Username: "ana"},
				Audio:   true,
				Logger:  zerolog.Nop(),
			})
			var out bytes.Buffer
			w := &watcher{conv: conv, last: tt.last, jsonMode: tt.jsonMode, out: &out, logger: zerolog.Nop()}

			if err := w.poll(context.Background()); err != nil {
				t.Fatalf("first poll: %v", err)
			}
			if got := printedContents(t, out.String(), tt.jsonMode); !equalStrings(got, tt.wantFirst) {
				t.Fatalf("first poll printed %v, want %v", got, tt.wantFirst)
			}
			if beeps != 0 {
				t.Fatalf("first batch must not beep, got %d", beeps)
			}

			out.Reset()
			srv.SeedMessage(group.ID, "cy", "four", 0)
			if err := w.poll(context.Background()); err != nil {
				t.Fatalf("second poll: %v", err)
			}
			if got := printedContents(t, out.String(), tt.jsonMode); !equalStrings(got, []string{"four"}) {
				t.Fatalf("second poll printed %v, want [four]", got)
			}
			if beeps != 1 {
				t.Fatalf("expected one beep for the new message, got %d", beeps)
			}

			out.Reset()
			if err := w.poll(context.Background()); err != nil {
				t.Fatalf("third poll: %v", err)
			}
			if out.Len() != 0 || beeps != 1 {
				t.Fatalf("unchanged batch printed %q with %d beeps", out.String(), beeps)
			}
		})
	}
}

// printedContents extracts message bodies from watcher output.
func printedContents(t *testing.T, output string, jsonMode bool) []string {
	t.Helper()
	var contents []string
	if jsonMode {
		dec := json.NewDecoder(strings.NewReader(output))
		for dec.More() {
			var msg types.Message
			if err := dec.Decode(&msg); err != nil {
				t.Fatalf("decode line: %v", err)
			}
			contents = append(contents, msg.Content)
		}
		return contents
	}
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "  ↪") && !strings.HasPrefix(line, "  ↩") {
			contents = append(contents, strings.TrimSpace(line))
		}
	}
	return contents
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
