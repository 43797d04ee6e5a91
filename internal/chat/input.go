package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

const (
	composerCharLimit  = 4000
	groupNameCharLimit = 100
)

func newComposer() textarea.Model {
	input := textarea.New()
	input.Placeholder = "Write a message…"
	input.Prompt = "› "
	input.ShowLineNumbers = false
	input.CharLimit = composerCharLimit
	input.SetHeight(1)
	input.KeyMap.InsertNewline.SetKeys("ctrl+j", "alt+enter")
	applyInputStyles(&input, textColor, blurText)
	input.Blur()
	return input
}

func applyInputStyles(input *textarea.Model, textColor, blurColor lipgloss.Color) {
	input.FocusedStyle.Base = lipgloss.NewStyle().Foreground(textColor).Background(inputBg)
	input.FocusedStyle.Text = lipgloss.NewStyle().Foreground(textColor).Background(inputBg)
	input.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(caretColor).Background(inputBg)
	input.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(inputBg)
	input.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	input.BlurredStyle.Base = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	input.BlurredStyle.Text = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	input.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	input.BlurredStyle.CursorLine = lipgloss.NewStyle().Background(inputBg)
	input.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
}

func newGroupInput() textinput.Model {
	input := textinput.New()
	input.Placeholder = "group name"
	input.Prompt = "+ "
	input.CharLimit = groupNameCharLimit
	input.PromptStyle = lipgloss.NewStyle().Foreground(caretColor)
	input.TextStyle = lipgloss.NewStyle().Foreground(textColor)
	return input
}

// focusComposer marks the user as composing; message polls are skipped
// until the composer loses focus.
func (m *Model) focusComposer() {
	m.input.Focus()
	if m.conv != nil {
		m.conv.SetComposing(true)
	}
}

func (m *Model) blurComposer() {
	m.input.Blur()
	if m.conv != nil {
		m.conv.SetComposing(false)
	}
}

func normalizeNewlines(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return strings.ReplaceAll(value, "\r", "\n")
}
