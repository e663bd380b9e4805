// Package tokenizer provides text tokenisation for the search engine.
// It splits input on whitespace, strips every rune that is not alphanumeric,
// and lower-cases what remains. Alphanumeric covers letters, every numeric
// category (superscripts, roman numerals, fractions) and the combining
// vowel signs of scripts such as Devanagari. There is no stemming and no stop-word
// removal: a token matches only its exact normalised form.
package tokenizer

import (
	"strings"
	"unicode"
)

// Normalize strips all non-alphanumeric runes from word and lower-cases the
// remainder. It may return "".
func Normalize(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if IsAlphanumeric(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// IsAlphanumeric reports whether r survives normalisation.
func IsAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Other_Alphabetic, r)
}

// Tokenize splits text on whitespace and returns the normalised, non-empty
// tokens in document order.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if token := Normalize(word); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// WordSet returns the distinct non-empty normalised forms of words. Each
// word is normalised whole, so "e-mail" yields "email".
func WordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if token := Normalize(w); token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}
