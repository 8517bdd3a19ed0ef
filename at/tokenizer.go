package at

import (
	"strings"
)

// Classify identifies the nature of a single response line. Lines are
// expected to be trimmed already, as produced by ParseLines.
//
// Classify is purely informational: the exchange engine decides success
// with MatchPolicy and Contains, never with the classification.
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case strings.HasPrefix(line, UrcNewMsg), strings.HasPrefix(line, UrcMessageReport),
		strings.HasPrefix(line, UrcPDPDeactivated):
		return TypeURC
	}

	switch line {
	case UrcCall, UrcReady, UrcCallReady, UrcSMSReady, UrcPowerDown:
		return TypeURC
	default:
		return TypeData
	}
}

// FinalResult returns the last final result code (OK, ERROR, +CME ERROR: ...)
// found in lines, or the empty string when the response carries none, which
// usually means it was cut short or never arrived.
func FinalResult(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if Classify(lines[i]) == TypeFinal {
			return lines[i]
		}
	}
	return ""
}

// URCs returns the unsolicited result codes interleaved with a response,
// in the order they were received.
func URCs(lines []string) []string {
	var urcs []string
	for _, line := range lines {
		if Classify(line) == TypeURC {
			urcs = append(urcs, line)
		}
	}
	return urcs
}
