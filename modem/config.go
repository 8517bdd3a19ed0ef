package modem

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultSettleDelay is the pause before every send. Modem firmware
	// drops or garbles commands that follow the previous response too closely.
	DefaultSettleDelay = 500 * time.Millisecond
	// DefaultPacingDelay separates consecutive commands of a batch.
	DefaultPacingDelay = time.Second
	// DefaultPollInterval is the spacing between checks for response data.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultMaxPolls bounds response polling to ten seconds at the default
	// interval.
	DefaultMaxPolls = 1000
)

// Config controls the exchange engine and, through Dialer, how a Modem
// session reaches the device. Zero fields take the package defaults.
type Config struct {
	Dialer Dialer
	Logger *slog.Logger

	SettleDelay time.Duration
	PacingDelay time.Duration
	Poll        PollBudget

	// Waiter decides how the engine waits for response data. Defaults to a
	// PollingWaiter sharing Sleeper.
	Waiter  DataWaiter
	Sleeper Sleeper
	Clock   func() time.Time
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return c.validateTiming()
}

func (c *Config) validateTiming() error {
	if c.SettleDelay < 0 {
		return fmt.Errorf("negative settle delay: %s", c.SettleDelay)
	}
	if c.PacingDelay < 0 {
		return fmt.Errorf("negative pacing delay: %s", c.PacingDelay)
	}
	if !c.Poll.IsZero() && !c.Poll.valid() {
		return fmt.Errorf("invalid poll budget: %d polls every %s", c.Poll.MaxPolls, c.Poll.Interval)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.PacingDelay == 0 {
		c.PacingDelay = DefaultPacingDelay
	}
	if c.Poll.IsZero() {
		c.Poll = PollBudget{Interval: DefaultPollInterval, MaxPolls: DefaultMaxPolls}
	}
	if c.Sleeper == nil {
		c.Sleeper = realSleeper
	}
	if c.Waiter == nil {
		c.Waiter = PollingWaiter{Sleeper: c.Sleeper}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithSettleDelay(d time.Duration) *ConfigBuilder {
	b.config.SettleDelay = d
	return b
}

func (b *ConfigBuilder) WithPacingDelay(d time.Duration) *ConfigBuilder {
	b.config.PacingDelay = d
	return b
}

func (b *ConfigBuilder) WithPollBudget(interval time.Duration, maxPolls int) *ConfigBuilder {
	b.config.Poll = PollBudget{Interval: interval, MaxPolls: maxPolls}
	return b
}

func (b *ConfigBuilder) WithWaiter(w DataWaiter) *ConfigBuilder {
	b.config.Waiter = w
	return b
}

func (b *ConfigBuilder) WithSleeper(s Sleeper) *ConfigBuilder {
	b.config.Sleeper = s
	return b
}

func (b *ConfigBuilder) WithClock(now func() time.Time) *ConfigBuilder {
	b.config.Clock = now
	return b
}

// Build validates the configuration and fills in defaults. A Dialer is
// required.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}
