package command

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/adamavenir/gchat/internal/core"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const replyPreviewLen = 50

var (
	noColor = os.Getenv("NO_COLOR") != ""

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	idStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
)

var userColors = []lipgloss.Color{
	lipgloss.Color("111"),
	lipgloss.Color("157"),
	lipgloss.Color("216"),
	lipgloss.Color("36"),
	lipgloss.Color("183"),
	lipgloss.Color("230"),
}

func styled(style lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

func userStyle(username string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(username)))
	return lipgloss.NewStyle().Foreground(userColors[int(h.Sum32()%uint32(len(userColors)))]).Bold(true)
}

// FormatMessage renders one message for line-oriented output.
func FormatMessage(msg types.Message, now time.Time) string {
	var b strings.Builder
	idBlock := styled(idStyle, "#"+msg.ID.String())
	who := msg.Sender.Username
	if who == "" {
		who = "unknown"
	}
	fmt.Fprintf(&b, "%s %s %s", idBlock, core.Avatar(who), styled(userStyle(who), "@"+who))
	if !msg.Timestamp.IsZero() {
		b.WriteString(" " + styled(dimStyle, humanize.RelTime(msg.Timestamp, now, "ago", "from now")))
	}
	b.WriteString("\n")

	if msg.ReplyTo != nil {
		parent := msg.ReplyTo
		line := fmt.Sprintf("  ↪ #%s", parent.ID)
		if parent.Sender.Username != "" {
			line = fmt.Sprintf("  ↪ #%s @%s: %s", parent.ID, parent.Sender.Username, truncate(parent.Content, replyPreviewLen))
		}
		b.WriteString(styled(dimStyle, line) + "\n")
	}
	for _, line := range strings.Split(msg.Content, "\n") {
		b.WriteString("  " + line + "\n")
	}
	if n := len(msg.RepliedBy); n > 0 {
		refs := make([]string, 0, n)
		for _, r := range msg.RepliedBy {
			refs = append(refs, "#"+r.ID.String())
		}
		b.WriteString(styled(dimStyle, "  ↩ "+strings.Join(refs, " ")) + "\n")
	}
	return b.String()
}

func printMessages(out io.Writer, msgs []types.Message, now time.Time) {
	for i, msg := range msgs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, FormatMessage(msg, now))
	}
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
