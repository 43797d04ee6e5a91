package core

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// genericAvatars are used for names that do not start with a latin letter.
var genericAvatars = []string{"✿", "☗", "❖", "⌘", "〶", "☡", "〠", "❍", "◈", "◉"}

// Avatar returns a one-glyph avatar for a username: the circled first
// letter, or a generic glyph chosen stably from the name.
func Avatar(username string) string {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" {
		return genericAvatars[0]
	}
	first := []rune(name)[0]
	if first >= 'a' && first <= 'z' {
		return string(rune('Ⓐ' + (first - 'a')))
	}
	if unicode.IsDigit(first) && first != '0' && first <= '9' {
		return string(rune('①' + (first - '1')))
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return genericAvatars[int(h.Sum32()%uint32(len(genericAvatars)))]
}

// Initial returns the uppercase first rune of a username.
func Initial(username string) string {
	for _, r := range strings.TrimSpace(username) {
		return strings.ToUpper(string(r))
	}
	return "?"
}
