package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var mentionRe = regexp.MustCompile(`@([A-Za-z0-9_.+-]*[A-Za-z0-9_])`)

// ExtractMentions returns the lowercased usernames mentioned in body, in
// order of first appearance. An @ preceded by a letter or digit (an email
// address) is not a mention.
func ExtractMentions(body string) []string {
	matches := mentionRe.FindAllStringSubmatchIndex(body, -1)
	mentions := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, match := range matches {
		if len(match) < 4 {
			continue
		}
		start := match[0]
		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(body[:start])
			if isAlphaNum(prev) {
				continue
			}
		}

		name := strings.ToLower(body[match[2]:match[3]])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		mentions = append(mentions, name)
	}

	return mentions
}

// Mentions reports whether body mentions username directly or through @all.
func Mentions(body, username string) bool {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return false
	}
	for _, name := range ExtractMentions(body) {
		if name == username || IsAllMention(name) {
			return true
		}
	}
	return false
}

// IsAllMention reports whether the mention is @all.
func IsAllMention(mention string) bool {
	return mention == "all"
}

func isAlphaNum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
