package modem

import (
	"fmt"
	"strings"
	"time"

	"i4.energy/across/atrunner/at"
)

// CommandSpec describes one command to exchange with the modem and how to
// judge its response. It is a plain value: the engine works on its own copy,
// so a spec is never changed by running it.
type CommandSpec struct {
	// Text is the command line without terminator, e.g. "AT+CREG?".
	Text string
	// RequireStatusOK demands an "OK" among the response lines, found
	// according to StatusMatch.
	RequireStatusOK bool
	// StatusMatch selects how "OK" is detected. The zero value, at.MatchExact,
	// requires a line that is exactly "OK".
	StatusMatch at.MatchPolicy
	// RequiredSubstring, when non-empty, must occur in at least one line.
	RequiredSubstring string
	// MaxAttempts bounds the retry loop and must be at least 1.
	MaxAttempts int
	// PostSendDelay is waited unconditionally after writing the command and
	// before polling for the response.
	PostSendDelay time.Duration
	// Poll overrides the engine's poll budget for slow commands. The zero
	// value uses the engine default.
	Poll PollBudget
}

// Command returns a spec for text that expects an exact "OK" line and makes
// a single attempt.
func Command(text string) CommandSpec {
	return CommandSpec{
		Text:            text,
		RequireStatusOK: true,
		MaxAttempts:     1,
	}
}

// Validate reports whether c can be executed.
func (c CommandSpec) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: empty command text", ErrInvalidCommand)
	}
	if strings.ContainsAny(c.Text, "\r\n") {
		return fmt.Errorf("%w: command %q contains a line terminator", ErrInvalidCommand, c.Text)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: command %q needs at least one attempt, got %d", ErrInvalidCommand, c.Text, c.MaxAttempts)
	}
	if c.PostSendDelay < 0 {
		return fmt.Errorf("%w: command %q has negative post-send delay", ErrInvalidCommand, c.Text)
	}
	if !c.Poll.IsZero() && !c.Poll.valid() {
		return fmt.Errorf("%w: command %q has invalid poll budget %d x %s", ErrInvalidCommand, c.Text, c.Poll.MaxPolls, c.Poll.Interval)
	}
	switch c.StatusMatch {
	case at.MatchExact, at.MatchSubstring:
	default:
		return fmt.Errorf("%w: command %q has unknown status match policy %d", ErrInvalidCommand, c.Text, c.StatusMatch)
	}
	return nil
}

// check applies the validation rules to one attempt's result. The status
// check runs first, then the substring check.
func (c CommandSpec) check(res *ExchangeResult) error {
	if c.RequireStatusOK && !res.StatusOK {
		if res.TimedOut {
			return fmt.Errorf("%w: no response within poll budget", ErrValidation)
		}
		return fmt.Errorf("%w: [%s] is missed", ErrValidation, at.OK)
	}
	if c.RequiredSubstring != "" && !at.Contains(res.Lines, c.RequiredSubstring) {
		if res.TimedOut {
			return fmt.Errorf("%w: no response within poll budget", ErrValidation)
		}
		return fmt.Errorf("%w: response does not contain %q", ErrValidation, c.RequiredSubstring)
	}
	return nil
}

func (c CommandSpec) wire() []byte {
	return []byte(c.Text + at.Terminator)
}
