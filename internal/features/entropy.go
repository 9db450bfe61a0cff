package features

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Entropy returns the Shannon entropy (base 2) of the character distribution
// of a URL path, ignoring any query string or fragment. The result is rounded
// to two decimal places. An empty path has entropy 0.
func Entropy(url string) float64 {
	path := stripQueryAndFragment(url)
	if path == "" {
		return 0
	}

	counts := make(map[rune]int)
	for _, r := range path {
		counts[r]++
	}
	length := float64(utf8.RuneCountInString(path))

	var entropy float64
	for _, c := range counts {
		p := float64(c) / length
		entropy -= p * math.Log2(p)
	}
	return round(entropy, 2)
}

func stripQueryAndFragment(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return s
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
