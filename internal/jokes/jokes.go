package jokes

import (
	_ "embed"
	"math/rand/v2"
	"strings"
)

//go:embed jokes.txt
var raw string

var all = load(raw)

func load(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Random returns one joke from the built-in list.
func Random() string {
	return all[rand.IntN(len(all))]
}

func All() []string {
	return append([]string(nil), all...)
}
