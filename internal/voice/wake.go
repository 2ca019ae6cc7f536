package voice

import (
	"strings"
	"unicode"
)

const DefaultWakeWord = "nova"

// Normalize lower-cases text, turns punctuation into spaces and collapses
// whitespace. Apostrophes survive so "what's" stays one word.
func Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if r == '\'' || r == '’' {
			return '\''
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// ExtractCommand finds the wake word in an utterance and returns what was
// said after its first occurrence. ok is false when the wake word is
// missing or nothing follows it.
func ExtractCommand(utterance, wake string) (string, bool) {
	text := Normalize(utterance)
	wake = Normalize(wake)
	if wake == "" {
		return text, text != ""
	}

	i := strings.Index(text, wake)
	if i < 0 {
		return "", false
	}

	cmd := strings.TrimSpace(text[i+len(wake):])
	return cmd, cmd != ""
}
