package corenlp

import "unicode/utf8"

// offsetIndex converts the UTF-16 code unit offsets reported by the server
// into rune offsets of the submitted text.
type offsetIndex struct {
	// runeAt[u] is the rune offset that starts at UTF-16 offset u.
	runeAt []int
}

func newOffsetIndex(text string) *offsetIndex {
	runeAt := make([]int, 0, len(text)+1)
	r := 0
	for _, c := range text {
		runeAt = append(runeAt, r)
		if c >= 0x10000 && c <= utf8.MaxRune {
			// Surrogate pair: the low half maps to the same rune.
			runeAt = append(runeAt, r)
		}
		r++
	}
	runeAt = append(runeAt, r)
	return &offsetIndex{runeAt: runeAt}
}

// rune returns the rune offset for u, or -1 if u lies outside the text.
func (x *offsetIndex) rune(u int) int {
	if u < 0 || u >= len(x.runeAt) {
		return -1
	}
	return x.runeAt[u]
}
