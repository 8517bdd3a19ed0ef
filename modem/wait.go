package modem

import (
	"time"
)

// Sleeper pauses the calling goroutine. It backs every fixed wait the engine
// performs: the settle interval, the post-send delay, poll intervals and
// pacing between batch commands.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts an ordinary function to the Sleeper interface.
type SleeperFunc func(d time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) {
	f(d)
}

// realSleeper sleeps on the wall clock.
var realSleeper = SleeperFunc(time.Sleep)

// PollBudget bounds how long the engine waits for a response to start
// arriving: at most MaxPolls checks, Interval apart.
type PollBudget struct {
	Interval time.Duration
	MaxPolls int
}

// Timeout is the longest a budget may wait.
func (b PollBudget) Timeout() time.Duration {
	return b.Interval * time.Duration(b.MaxPolls)
}

// IsZero reports whether the budget is unset.
func (b PollBudget) IsZero() bool {
	return b.Interval == 0 && b.MaxPolls == 0
}

func (b PollBudget) valid() bool {
	return b.Interval > 0 && b.MaxPolls > 0
}

// DataWaiter waits for a transport to report received data.
//
// WaitForData returns true as soon as data is available and false once the
// budget is spent without any. Errors come from the transport and are fatal
// for the exchange.
type DataWaiter interface {
	WaitForData(t Transport, budget PollBudget) (bool, error)
}

// PollingWaiter checks the transport, then sleeps Interval, up to MaxPolls
// times. The effective timeout is an iteration count, not an elapsed-time
// bound: slow Available calls stretch it.
type PollingWaiter struct {
	Sleeper Sleeper
}

func (w PollingWaiter) WaitForData(t Transport, budget PollBudget) (bool, error) {
	sleeper := w.Sleeper
	if sleeper == nil {
		sleeper = realSleeper
	}
	for poll := 0; poll < budget.MaxPolls; poll++ {
		n, err := t.Available()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
		sleeper.Sleep(budget.Interval)
	}
	return false, nil
}

// DeadlineWaiter polls every budget.Interval until budget.Timeout() has
// elapsed on the clock, however many polls that takes.
type DeadlineWaiter struct {
	Sleeper Sleeper
	Now     func() time.Time
}

func (w DeadlineWaiter) WaitForData(t Transport, budget PollBudget) (bool, error) {
	sleeper := w.Sleeper
	if sleeper == nil {
		sleeper = realSleeper
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}

	deadline := now().Add(budget.Timeout())
	for {
		n, err := t.Available()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
		if !now().Before(deadline) {
			return false, nil
		}
		sleeper.Sleep(budget.Interval)
	}
}
