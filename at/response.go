package at

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// MatchPolicy selects how a needle is looked up in response lines.
type MatchPolicy int

const (
	// MatchExact requires a line to be equal to the needle.
	MatchExact MatchPolicy = iota
	// MatchSubstring requires a line to contain the needle.
	MatchSubstring
)

func (p MatchPolicy) String() string {
	switch p {
	case MatchExact:
		return "exact"
	case MatchSubstring:
		return "substring"
	default:
		return "unknown"
	}
}

// ParseMatchPolicy parses the textual form produced by MatchPolicy.String.
// An empty string yields MatchExact.
func ParseMatchPolicy(s string) (MatchPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, true
	case "substring":
		return MatchSubstring, true
	default:
		return MatchExact, false
	}
}

// Match reports whether any line satisfies the policy for needle.
func (p MatchPolicy) Match(lines []string, needle string) bool {
	if p == MatchSubstring {
		return Contains(lines, needle)
	}
	return ContainsLine(lines, needle)
}

// Decode converts raw modem output to text. Modems emit ASCII with the
// occasional stray high byte, so the bytes are read as Latin-1: every byte
// maps to exactly one rune and decoding cannot fail, which keeps partial or
// noisy output available for diagnostics.
func Decode(raw []byte) string {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// unreachable for ISO 8859-1, kept for the decoder contract
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(text)
}

// ParseLines normalizes a decoded response into lines. All carriage returns
// are removed, surrounding whitespace is trimmed from the whole text and the
// remainder is split on line feeds. Whitespace inside the text, including
// blank lines between lines, is preserved.
//
// The result is never empty: an empty response yields a single empty line.
func ParseLines(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	return strings.Split(strings.TrimSpace(text), "\n")
}

// Contains reports whether needle is a substring of at least one line.
func Contains(lines []string, needle string) bool {
	for _, line := range lines {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// ContainsLine reports whether at least one line is exactly needle.
func ContainsLine(lines []string, needle string) bool {
	for _, line := range lines {
		if line == needle {
			return true
		}
	}
	return false
}
