// Package format applies the cosmetic rewrite posts get before publishing.
package format

import (
	"strings"
	"unicode/utf8"
)

// Markers are the decorative header emojis a post may start with.
var Markers = []string{"🚀", "✨", "⚡"}

const (
	// markerWindow is how many leading runes are checked for an existing marker.
	markerWindow = 50

	boxTop    = "┌"
	boxBottom = "└"
)

var border = strings.Repeat("━", 20)

// Rand picks the header marker. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Post prepends a random marker unless one already appears in the first
// markerWindow runes, then frames box-drawing blocks with borders.
func Post(content string, rng Rand) string {
	out := content
	if !hasMarker(content) {
		out = Markers[rng.IntN(len(Markers))] + " " + out
	}
	return Borders(out)
}

// Borders puts a border line above every "┌" and below every "└".
// Text without either character is returned unchanged.
func Borders(s string) string {
	if !strings.Contains(s, boxTop) && !strings.Contains(s, boxBottom) {
		return s
	}
	s = strings.ReplaceAll(s, boxTop, border+"\n"+boxTop)
	s = strings.ReplaceAll(s, boxBottom, boxBottom+"\n"+border)
	return s
}

func hasMarker(s string) bool {
	head := s
	if utf8.RuneCountInString(s) > markerWindow {
		n := 0
		for i := range s {
			if n == markerWindow {
				head = s[:i]
				break
			}
			n++
		}
	}
	for _, m := range Markers {
		if strings.Contains(head, m) {
			return true
		}
	}
	return false
}
