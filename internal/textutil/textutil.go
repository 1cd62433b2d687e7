// Package textutil holds the word handling shared by the keyword classifier
// and the search index.
package textutil

import (
	"sort"
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be but by for from has have in is it its of on or
		that the this to was were will with you your we our they their i me my not no so if then than
		there here what which who when where how all any can do does did just into out up down over
		also been being more most other some such only own same too very about after before
		txt pdf doc docx jpg jpeg png gif mp3 mp4 wav mov`) {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether w carries no classification signal.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Tokenize splits s into lowercase words of letters and digits, dropping
// stopwords and single characters. Underscores, dashes and dots separate
// words, so filenames tokenize like prose.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || IsStopword(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Stem trims a plural "s" so "invoices" and "invoice" compare equal.
func Stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

// TopKeywords returns up to n of the most frequent tokens of text, ties
// broken alphabetically.
func TopKeywords(text string, n int) []string {
	counts := make(map[string]int)
	for _, w := range Tokenize(text) {
		if len(w) < 3 {
			continue
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
