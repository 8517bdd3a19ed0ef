package modem_test

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/atrunner/modem"
)

func TestConfig(t *testing.T) {
	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		_, err := modem.NewConfigBuilder().Build()

		if err != modem.ErrNoDialer {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		config, err := modem.NewConfigBuilder().
			WithDialer(modem.NewMockDialer(ctrl)).
			Build()
		if err != nil {
			t.Fatalf("unexpected error from Build(): %v", err)
		}

		if config.SettleDelay != modem.DefaultSettleDelay {
			t.Errorf("expected settle delay %s, got %s", modem.DefaultSettleDelay, config.SettleDelay)
		}
		if config.PacingDelay != modem.DefaultPacingDelay {
			t.Errorf("expected pacing delay %s, got %s", modem.DefaultPacingDelay, config.PacingDelay)
		}
		if config.Poll.Timeout() != 10*time.Second {
			t.Errorf("expected 10s default poll timeout, got %s", config.Poll.Timeout())
		}
		if config.Logger == nil || config.Waiter == nil || config.Sleeper == nil || config.Clock == nil {
			t.Error("expected defaults for logger, waiter, sleeper and clock")
		}
	})

	t.Run("Rejects invalid timing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		builders := []*modem.ConfigBuilder{
			modem.NewConfigBuilder().WithSettleDelay(-time.Second),
			modem.NewConfigBuilder().WithPacingDelay(-time.Second),
			modem.NewConfigBuilder().WithPollBudget(0, 10),
			modem.NewConfigBuilder().WithPollBudget(time.Millisecond, -1),
		}
		for i, b := range builders {
			if _, err := b.WithDialer(modem.NewMockDialer(ctrl)).Build(); err == nil {
				t.Errorf("builder %d: expected error", i)
			}
		}

		if _, err := modem.NewEngine(modem.Config{PacingDelay: -time.Second}); err == nil {
			t.Error("NewEngine: expected error for negative pacing delay")
		}
	})

	t.Run("Custom waiter is used", func(t *testing.T) {
		var calls int
		waiter := waiterFunc(func(modem.Transport, modem.PollBudget) (bool, error) {
			calls++
			return false, errors.New("stop")
		})

		engine, err := modem.NewEngine(modem.Config{Waiter: waiter, Sleeper: &recordingSleeper{}})
		if err != nil {
			t.Fatalf("unexpected error from NewEngine(): %v", err)
		}
		if _, err := engine.Execute(modem.NewTestTransport(), modem.Command("AT")); !errors.Is(err, modem.ErrTransport) {
			t.Errorf("expected waiter error to surface as transport error, got: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected waiter to be called once, got %d", calls)
		}
	})
}

type waiterFunc func(modem.Transport, modem.PollBudget) (bool, error)

func (f waiterFunc) WaitForData(t modem.Transport, b modem.PollBudget) (bool, error) {
	return f(t, b)
}
