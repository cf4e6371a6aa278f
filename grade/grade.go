// Package grade maps the caller-facing grade filter onto each provider's own
// grade vocabulary, and pulls a single normalized grade back out of the
// free-text labels providers render next to their results.
package grade

import (
	"net/url"
	"regexp"
	"strconv"
)

// Token is the caller-facing grade filter: "all", "K", or "1".."12".
type Token string

const (
	All          Token = "all"
	Kindergarten Token = "K"
)

// Tokens lists every accepted Token in display order.
var Tokens = []Token{All, Kindergarten, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}

// Parse returns the Token for s and whether s is one of the accepted values.
// An empty string parses as All.
func Parse(s string) (Token, bool) {
	if s == "" {
		return All, true
	}
	t := Token(s)
	return t, t.Valid()
}

// Valid reports whether t is one of the accepted tokens.
func (t Token) Valid() bool {
	for _, v := range Tokens {
		if v == t {
			return true
		}
	}
	return false
}

func (t Token) String() string { return string(t) }

// number returns the numeric grade for "1".."12"-style tokens.
func (t Token) number() (int, bool) {
	n, err := strconv.Atoi(string(t))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ForPBS buckets t into PBS LearningMedia's grade bands.
// An empty result means "no grade filter".
func ForPBS(t Token) string {
	switch t {
	case "", All:
		return ""
	case Kindergarten:
		return "PreK-K"
	}

	n, ok := t.number()
	if !ok || n < 1 {
		return ""
	}
	switch {
	case n <= 2:
		return "K-2"
	case n <= 5:
		return "3-5"
	case n <= 8:
		return "6-8"
	case n <= 12:
		return "9-12"
	}
	return ""
}

// ForCK12 returns the CK-12 grade filter for t. CK-12 only filters grades
// 1 through 10; kindergarten and everything else are unfiltered.
func ForCK12(t Token) string {
	n, ok := t.number()
	if !ok || n < 1 || n > 10 {
		return ""
	}
	return url.QueryEscape(strconv.Itoa(n))
}

// ForKhan returns t unchanged. Khan Academy has no grade vocabulary in its
// search URL.
func ForKhan(t Token) string {
	return string(t)
}

var digitRun = regexp.MustCompile(`\d+`)

// Extract returns the first run of digits in a provider's grade label, or
// nil when the label carries none ("Grades 3 & 4" -> "3").
func Extract(label string) *string {
	if label == "" {
		return nil
	}
	m := digitRun.FindString(label)
	if m == "" {
		return nil
	}
	return &m
}
