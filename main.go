package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"i4.energy/across/atrunner/at"
	"i4.energy/across/atrunner/commandset"
	"i4.energy/across/atrunner/modem"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "atrunner",
		Short:        "Send AT command batches to a cellular modem",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "TOML configuration file")
	flags.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flags.Int("baud-rate", modem.DefaultBaudRate, "Baud rate for serial communication")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "json", "Log format (json, text)")
	flags.Duration("open-timeout", modem.DefaultOpenTimeout, "Timeout for opening the serial port")
	flags.Duration("read-timeout", modem.DefaultReadTimeout, "Serial read timeout used to probe for input")
	flags.Duration("settle-delay", modem.DefaultSettleDelay, "Pause before every command")
	flags.Duration("pacing-delay", modem.DefaultPacingDelay, "Pause between commands of a batch")
	flags.Duration("poll-interval", modem.DefaultPollInterval, "Spacing between checks for response data")
	flags.Int("poll-max", modem.DefaultMaxPolls, "Number of checks before a response times out")

	root.AddCommand(newRunCmd(), newExecCmd(), newSetsCmd(), newSchemaCmd())
	return root
}

// loadConfig layers defaults, the optional config file, the environment and
// explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return LoadConfig(WithDefaults(), WithFile(path), WithEnv(), WithFlags(cmd.Flags()))
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if strings.ToLower(format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// openModem loads the configuration and dials the modem it describes.
func openModem(cmd *cobra.Command) (*modem.Modem, *slog.Logger, error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), config.LogLevel, config.LogFormat)

	modemConfig, err := config.ModemConfig(logger.With("component", "modem"))
	if err != nil {
		return nil, nil, fmt.Errorf("modem config: %w", err)
	}

	m, err := modem.New(cmd.Context(), modemConfig)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Connected to modem", "port", config.SerialPort, "baud_rate", config.BaudRate)
	return m, logger, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <set|file>",
		Short: "Run a builtin command set or a command set file",
		Long: `Runs every command of the set in order. The batch aborts at the first
command whose retries are exhausted, and the process exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := commandset.Resolve(args[0])
			if err != nil {
				return err
			}
			specs, err := set.Specs()
			if err != nil {
				return err
			}

			m, logger, err := openModem(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			logger.Info("Running command set", "name", set.Name, "commands", len(specs))
			if err := m.RunBatch(specs); err != nil {
				return fmt.Errorf("%s: %w", set.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d commands completed\n", set.Name, len(specs))
			return nil
		},
	}
}

func newExecCmd() *cobra.Command {
	var (
		status   bool
		expect   string
		attempts int
		delay    time.Duration
		match    string
	)

	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Send a single command and print the response lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, ok := at.ParseMatchPolicy(match)
			if !ok {
				return fmt.Errorf("unknown match policy %q", match)
			}
			spec := modem.CommandSpec{
				Text:              args[0],
				RequireStatusOK:   status,
				StatusMatch:       policy,
				RequiredSubstring: expect,
				MaxAttempts:       attempts,
				PostSendDelay:     delay,
			}
			if err := spec.Validate(); err != nil {
				return err
			}

			m, _, err := openModem(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			res, err := m.Exec(spec)
			var exhausted *modem.ExhaustedError
			if errors.As(err, &exhausted) && exhausted.Last != nil {
				res = exhausted.Last
			}
			if res != nil {
				for _, line := range res.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&status, "status", true, `Require an "OK" line`)
	cmd.Flags().StringVar(&expect, "expect", "", "Substring required in one response line")
	cmd.Flags().IntVar(&attempts, "attempts", 1, "Maximum number of attempts")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Wait after sending before polling for the response")
	cmd.Flags().StringVar(&match, "match", "exact", "How the OK line is matched (exact, substring)")
	return cmd
}

func newSetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sets",
		Short: "List the builtin command sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range commandset.BuiltinNames() {
				set, err := commandset.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %2d commands  %s\n", name, len(set.Commands), set.Description)
			}
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of command set documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(commandset.Schema())
		},
	}
}
