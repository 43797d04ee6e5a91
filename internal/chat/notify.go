package chat

import (
	"strings"

	"github.com/adamavenir/gchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
)

// Swapped out in tests.
var (
	playBeep = func() error {
		return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
	}
	desktopNotify = func(title, body string) error {
		return beeep.Notify(title, body, "")
	}
)

type soundDoneMsg struct {
	err error
}

// notifyCmd plays the new-message sound and, when enabled, raises a desktop
// notification for latest. Failures are reported back for logging only.
func (m *Model) notifyCmd(latest *types.Message) tea.Cmd {
	withDesktop := m.cfg.NotifyDesktop && latest != nil
	var title, body string
	if withDesktop {
		title = "@" + latest.Sender.Username
		if m.mentionsMe(*latest) {
			title += " mentioned you"
		}
		if m.groupName != "" {
			title += " in " + m.groupName
		}
		body = truncateNotification(latest.Content, 100)
	}
	return func() tea.Msg {
		err := playBeep()
		if withDesktop {
			if nerr := desktopNotify(title, body); nerr != nil && err == nil {
				err = nerr
			}
		}
		return soundDoneMsg{err: err}
	}
}

func truncateNotification(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
