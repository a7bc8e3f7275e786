// Package tokenizer provides text normalisation and q-gram extraction for
// the fuzzy search index. Normalisation lower-cases input and strips
// whitespace and non-word characters; q-gram extraction pads the result with
// sentinel characters and emits every fixed-length window.
package tokenizer

import (
	"strings"
	"unicode"
)

// Sentinel pads word boundaries during q-gram extraction. It never occurs in
// normalised text, so boundary grams cannot collide with interior ones.
const Sentinel = '$'

// Normalize lower-cases text and removes everything except letters, digits
// and underscores. Build and query paths must use the same normalisation or
// q-gram overlap counts are meaningless.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// QGrams returns every contiguous length-q window of text after padding both
// ends with q-1 sentinel runes, in left-to-right order and including
// duplicates. For non-empty text the result has len(text)+q-1 entries
// (counted in runes). q must be >= 1.
func QGrams(text string, q int) []string {
	if q < 1 {
		return nil
	}
	runes := make([]rune, 0, len(text)+2*(q-1))
	for i := 0; i < q-1; i++ {
		runes = append(runes, Sentinel)
	}
	runes = append(runes, []rune(text)...)
	for i := 0; i < q-1; i++ {
		runes = append(runes, Sentinel)
	}
	grams := make([]string, 0, len(runes)-q+1)
	for i := 0; i+q <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+q]))
	}
	return grams
}
