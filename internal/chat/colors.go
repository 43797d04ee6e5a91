package chat

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	textColor    = lipgloss.Color("252")
	blurText     = lipgloss.Color("245")
	caretColor   = lipgloss.Color("111")
	inputBg      = lipgloss.Color("236")
	metaColor    = lipgloss.Color("242")
	statusColor  = lipgloss.Color("244")
	pendingColor = lipgloss.Color("220")
	mentionColor = lipgloss.Color("229")
	headerColor  = lipgloss.Color("111")
	selectColor  = lipgloss.Color("237")
)

var userPalette = []lipgloss.Color{
	lipgloss.Color("111"),
	lipgloss.Color("157"),
	lipgloss.Color("216"),
	lipgloss.Color("36"),
	lipgloss.Color("183"),
	lipgloss.Color("230"),
}

// colorForUser picks a stable palette color for a username.
func colorForUser(username string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(username)))
	return userPalette[int(h.Sum32()%uint32(len(userPalette)))]
}

func contrastTextColor(color lipgloss.Color) lipgloss.Color {
	code, ok := parseColorCode(color)
	if !ok {
		return lipgloss.Color("231")
	}
	r, g, b := colorCodeToRGB(code)
	luminance := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if luminance > 128 {
		return lipgloss.Color("16")
	}
	return lipgloss.Color("231")
}

func parseColorCode(color lipgloss.Color) (int, bool) {
	trimmed := strings.TrimSpace(string(color))
	if trimmed == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 || parsed > 255 {
		return 0, false
	}
	return parsed, true
}

// colorCodeToRGB maps an xterm-256 code to its approximate RGB value.
func colorCodeToRGB(code int) (int, int, int) {
	switch {
	case code < 16:
		standard := [16][3]int{
			{0, 0, 0}, {128, 0, 0}, {0, 128, 0}, {128, 128, 0},
			{0, 0, 128}, {128, 0, 128}, {0, 128, 128}, {192, 192, 192},
			{128, 128, 128}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
			{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
		}
		v := standard[code]
		return v[0], v[1], v[2]
	case code <= 231:
		index := code - 16
		level := func(v int) int {
			if v == 0 {
				return 0
			}
			return 55 + v*40
		}
		return level(index / 36), level((index % 36) / 6), level(index % 6)
	default:
		gray := 8 + (code-232)*10
		return gray, gray, gray
	}
}
