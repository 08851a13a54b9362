// Package grapheme converts between rune offsets and user-perceived
// characters.
package grapheme

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Count returns the number of grapheme clusters in text.
func Count(text string) int {
	if text == "" {
		return 0
	}
	return uniseg.GraphemeClusterCount(text)
}

// Boundaries returns the rune offsets at which grapheme clusters start, plus
// the rune length of text. The result always begins with 0.
func Boundaries(text string) []int {
	out := []int{0}
	if text == "" {
		return out
	}
	g := uniseg.NewGraphemes(text)
	pos := 0
	for g.Next() {
		pos += len(g.Runes())
		out = append(out, pos)
	}
	return out
}

// Snap moves the rune offset pos to the nearest cluster boundary of text. A
// positive bias moves forward when pos falls inside a cluster, otherwise it
// moves backward. Offsets outside text are clamped.
func Snap(text string, pos, bias int) int {
	if pos <= 0 {
		return 0
	}
	n := utf8.RuneCountInString(text)
	if pos >= n {
		return n
	}
	prev := 0
	for _, b := range Boundaries(text) {
		if b == pos {
			return pos
		}
		if b > pos {
			if bias > 0 {
				return b
			}
			return prev
		}
		prev = b
	}
	return n
}

// Split returns grapheme clusters for text in visual order.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	g := uniseg.NewGraphemes(text)
	out := make([]string, 0, utf8.RuneCountInString(text))
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}
