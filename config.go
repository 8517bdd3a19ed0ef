package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"go.bug.st/serial"

	"i4.energy/across/atrunner/modem"
)

// Config holds the application configuration
type Config struct {
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// LogFormat selects the log handler ("json" or "text")
	LogFormat string
	// OpenTimeout bounds opening the serial port
	OpenTimeout time.Duration
	// ReadTimeout is the serial read timeout used to probe for pending bytes
	ReadTimeout time.Duration
	// SettleDelay is the pause before every send
	SettleDelay time.Duration
	// PacingDelay separates consecutive commands of a batch
	PacingDelay time.Duration
	// PollInterval and PollMax form the response poll budget
	PollInterval time.Duration
	PollMax      int
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = modem.DefaultBaudRate
		c.LogLevel = "info"
		c.LogFormat = "json"
		c.OpenTimeout = modem.DefaultOpenTimeout
		c.ReadTimeout = modem.DefaultReadTimeout
		c.SettleDelay = modem.DefaultSettleDelay
		c.PacingDelay = modem.DefaultPacingDelay
		c.PollInterval = modem.DefaultPollInterval
		c.PollMax = modem.DefaultMaxPolls
		return nil
	}
}

type fileConfig struct {
	SerialPort   string `toml:"serial_port"`
	BaudRate     int    `toml:"baud_rate"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
	OpenTimeout  string `toml:"open_timeout"`
	ReadTimeout  string `toml:"read_timeout"`
	SettleDelay  string `toml:"settle_delay"`
	PacingDelay  string `toml:"pacing_delay"`
	PollInterval string `toml:"poll_interval"`
	PollMax      int    `toml:"poll_max"`
}

// WithFile loads configuration from a TOML file. Keys absent from the file
// leave the current values alone. An empty path is a no-op.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("load config file: unknown key %q", undecoded[0].String())
		}

		if meta.IsDefined("serial_port") {
			c.SerialPort = strings.TrimSpace(raw.SerialPort)
		}
		if meta.IsDefined("baud_rate") {
			c.BaudRate = raw.BaudRate
		}
		if meta.IsDefined("log_level") {
			c.LogLevel = strings.TrimSpace(raw.LogLevel)
		}
		if meta.IsDefined("log_format") {
			c.LogFormat = strings.TrimSpace(raw.LogFormat)
		}
		if meta.IsDefined("poll_max") {
			c.PollMax = raw.PollMax
		}

		durations := []struct {
			key   string
			value string
			dst   *time.Duration
		}{
			{"open_timeout", raw.OpenTimeout, &c.OpenTimeout},
			{"read_timeout", raw.ReadTimeout, &c.ReadTimeout},
			{"settle_delay", raw.SettleDelay, &c.SettleDelay},
			{"pacing_delay", raw.PacingDelay, &c.PacingDelay},
			{"poll_interval", raw.PollInterval, &c.PollInterval},
		}
		for _, d := range durations {
			if !meta.IsDefined(d.key) {
				continue
			}
			v, err := time.ParseDuration(strings.TrimSpace(d.value))
			if err != nil {
				return fmt.Errorf("parse %s: %w", d.key, err)
			}
			*d.dst = v
		}

		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if port := os.Getenv("SERIAL_PORT"); port != "" {
			c.SerialPort = port
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if format := os.Getenv("LOG_FORMAT"); format != "" {
			c.LogFormat = format
		}

		if pollMax := os.Getenv("POLL_MAX"); pollMax != "" {
			if n, err := strconv.Atoi(pollMax); err == nil {
				c.PollMax = n
			}
		}

		envDuration("OPEN_TIMEOUT", &c.OpenTimeout)
		envDuration("READ_TIMEOUT", &c.ReadTimeout)
		envDuration("SETTLE_DELAY", &c.SettleDelay)
		envDuration("PACING_DELAY", &c.PacingDelay)
		envDuration("POLL_INTERVAL", &c.PollInterval)

		return nil
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// WithFlags loads configuration from command-line flags. Only flags set on
// the command line are applied.
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *pflag.Flag) {
			if err != nil {
				return
			}
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				c.BaudRate, err = fSet.GetInt(f.Name)
			case "log-level":
				c.LogLevel = f.Value.String()
			case "log-format":
				c.LogFormat = f.Value.String()
			case "open-timeout":
				c.OpenTimeout, err = fSet.GetDuration(f.Name)
			case "read-timeout":
				c.ReadTimeout, err = fSet.GetDuration(f.Name)
			case "settle-delay":
				c.SettleDelay, err = fSet.GetDuration(f.Name)
			case "pacing-delay":
				c.PacingDelay, err = fSet.GetDuration(f.Name)
			case "poll-interval":
				c.PollInterval, err = fSet.GetDuration(f.Name)
			case "poll-max":
				c.PollMax, err = fSet.GetInt(f.Name)
			}
		})
		return err
	}
}

// ModemConfig builds the engine configuration for c.
func (c *Config) ModemConfig(logger *slog.Logger) (modem.Config, error) {
	return modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName:    c.SerialPort,
			Mode:        &serial.Mode{BaudRate: c.BaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
			ReadTimeout: c.ReadTimeout,
			OpenTimeout: c.OpenTimeout,
		}).
		WithLogger(logger).
		WithSettleDelay(c.SettleDelay).
		WithPacingDelay(c.PacingDelay).
		WithPollBudget(c.PollInterval, c.PollMax).
		Build()
}
