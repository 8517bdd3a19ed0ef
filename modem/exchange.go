package modem

import (
	"errors"
	"log/slog"
	"time"

	"i4.energy/across/atrunner/at"
)

// ExchangeResult is the outcome of one attempt at a command.
type ExchangeResult struct {
	// Command is the text that was sent, without terminator.
	Command string
	// Lines holds the normalized response, see at.ParseLines. It is never
	// empty; an attempt that received nothing has a single empty line.
	Lines []string
	// StatusOK reports whether "OK" was found under the command's
	// StatusMatch policy.
	StatusOK bool
	// Final is the last final result code in Lines, "" when there is none.
	Final string
	// TimedOut is set when no data arrived within the poll budget.
	TimedOut bool
	// SentAt is taken right before the write, ReceivedAt once polling ended.
	SentAt     time.Time
	ReceivedAt time.Time
	// Attempt is the zero-based attempt index within the retry loop.
	Attempt int
}

// Elapsed is the time between sending and the end of polling.
func (r *ExchangeResult) Elapsed() time.Duration {
	return r.ReceivedAt.Sub(r.SentAt)
}

// Engine runs command exchanges against a Transport. It keeps no state
// between calls and never touches the transport outside Execute and
// RunBatch, which run synchronously on the caller's goroutine.
type Engine struct {
	logger      *slog.Logger
	settleDelay time.Duration
	pacingDelay time.Duration
	poll        PollBudget
	waiter      DataWaiter
	sleeper     Sleeper
	now         func() time.Time
}

// NewEngine creates an Engine from config. The Dialer is ignored; zero
// fields take the package defaults.
func NewEngine(config Config) (*Engine, error) {
	if err := config.validateTiming(); err != nil {
		return nil, err
	}
	config.setDefaults()
	return &Engine{
		logger:      config.Logger,
		settleDelay: config.SettleDelay,
		pacingDelay: config.PacingDelay,
		poll:        config.Poll,
		waiter:      config.Waiter,
		sleeper:     config.Sleeper,
		now:         config.Clock,
	}, nil
}

// Execute sends cmd and retries until a response passes validation or
// cmd.MaxAttempts attempts have been made. Each attempt:
//
//  1. waits the settle delay,
//  2. writes the command followed by a carriage return,
//  3. waits cmd.PostSendDelay,
//  4. polls the transport until data is available or the budget runs out,
//  5. reads and parses whatever arrived,
//  6. validates the lines against cmd.
//
// The first passing attempt is returned immediately. When every attempt
// fails validation Execute returns an *ExhaustedError; a response that never
// arrives counts as a failed attempt. Transport errors abort at once with a
// *TransportError.
func (e *Engine) Execute(t Transport, cmd CommandSpec) (*ExchangeResult, error) {
	if t == nil {
		return nil, ErrNotInitialized
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	logger := e.logger.With("command", cmd.Text)

	var last *ExchangeResult
	for attempt := 0; attempt < cmd.MaxAttempts; attempt++ {
		res, err := e.attempt(logger, t, cmd, attempt)
		if err != nil {
			logger.Error("Sending AT command ended with transport error", "attempt", attempt, "error", err)
			return nil, err
		}
		last = res

		if err := cmd.check(res); err != nil {
			logger.Warn("Response not valid", "attempt", attempt, "reason", err)
			continue
		}

		logger.Info("Sending AT command ended with success", "attempt", attempt)
		return res, nil
	}

	err := &ExhaustedError{Command: cmd.Text, Attempts: cmd.MaxAttempts, Last: last}
	logger.Error("Sending AT command ended with error", "attempts", cmd.MaxAttempts, "error", err)
	return nil, err
}

func (e *Engine) attempt(logger *slog.Logger, t Transport, cmd CommandSpec, attempt int) (*ExchangeResult, error) {
	e.sleeper.Sleep(e.settleDelay)

	logger.Info("Sending command", "attempt", attempt)
	res := &ExchangeResult{
		Command: cmd.Text,
		Attempt: attempt,
		SentAt:  e.now(),
	}
	if _, err := t.Write(cmd.wire()); err != nil {
		return nil, &TransportError{Op: "write", Command: cmd.Text, Err: err}
	}

	if cmd.PostSendDelay > 0 {
		logger.Debug("Waiting for device", "delay", cmd.PostSendDelay)
		e.sleeper.Sleep(cmd.PostSendDelay)
	}

	budget := cmd.Poll
	if budget.IsZero() {
		budget = e.poll
	}
	ready, err := e.waiter.WaitForData(t, budget)
	if err != nil {
		return nil, &TransportError{Op: "poll", Command: cmd.Text, Err: err}
	}
	res.ReceivedAt = e.now()

	var raw []byte
	if ready {
		raw, err = t.ReadAvailable()
		if err != nil {
			return nil, &TransportError{Op: "read", Command: cmd.Text, Err: err}
		}
		logger.Debug("Read response bytes", "attempt", attempt, "bytes", len(raw))
	} else {
		res.TimedOut = true
		logger.Warn("No response from device", "attempt", attempt, "timeout", budget.Timeout())
	}

	res.Lines = at.ParseLines(at.Decode(raw))
	res.StatusOK = cmd.StatusMatch.Match(res.Lines, at.OK)
	res.Final = at.FinalResult(res.Lines)

	logger.Info("Received response",
		"attempt", attempt,
		"lines", res.Lines,
		"status_ok", res.StatusOK,
		"final", res.Final,
		"elapsed", res.Elapsed(),
	)
	if urcs := at.URCs(res.Lines); len(urcs) > 0 {
		logger.Debug("Unsolicited result codes in response", "urcs", urcs)
	}
	return res, nil
}

// IsExhausted reports whether err is the failure sentinel of an exchange
// rather than a transport or configuration error.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}
