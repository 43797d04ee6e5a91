package chat

const inputMaxHeight = 8
const inputPadding = 1

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}

	inputWidth := m.width - inputPadding
	if inputWidth < 1 {
		inputWidth = 1
	}
	m.input.SetWidth(inputWidth)
	m.groupInput.Width = inputWidth - 4
	lineCount := m.input.LineCount()
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > inputMaxHeight {
		lineCount = inputMaxHeight
	}
	m.input.SetHeight(lineCount)
	inputHeight := m.input.Height() + 2

	headerHeight := 1
	statusHeight := 1
	marginHeight := 1
	replyHeight := 0
	if m.conv != nil && m.conv.ReplyTo() != nil {
		replyHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = m.height - headerHeight - inputHeight - replyHeight - statusHeight - marginHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
}

// groupListHeight is the number of group rows that fit on screen.
func (m *Model) groupListHeight() int {
	// header, margin, input line, status
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}
