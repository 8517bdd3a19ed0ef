package modem

import (
	"context"
	"fmt"
	"log/slog"
)

// Modem is a session with one cellular modem: the Transport obtained from the
// configured Dialer plus the Engine that drives it.
//
// A Modem owns its transport exclusively and is not safe for concurrent use;
// commands run one at a time on the caller's goroutine.
type Modem struct {
	// transport provides the physical connection to the modem (serial, etc.)
	transport Transport
	// engine runs the command exchanges over transport
	engine *Engine
	// logger is the engine's logger, kept for session lifecycle records
	logger *slog.Logger
	// closed indicates if the modem has been shut down
	closed bool
}

// New dials the modem with config.Dialer and prepares the exchange engine.
//
// Returns an error if the configuration is invalid or the transport cannot
// be established.
func New(ctx context.Context, config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	engine, err := NewEngine(config)
	if err != nil {
		return nil, err
	}

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial modem: %w", err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	config.Logger.Debug("Modem connected")

	return &Modem{
		transport: transport,
		engine:    engine,
		logger:    config.Logger,
	}, nil
}

// Exec runs a single command exchange, see Engine.Execute.
func (m *Modem) Exec(cmd CommandSpec) (*ExchangeResult, error) {
	if m.closed {
		return nil, ErrAlreadyClosed
	}
	return m.engine.Execute(m.transport, cmd)
}

// RunBatch runs cmds with abort-on-first-failure, see Engine.RunBatch.
func (m *Modem) RunBatch(cmds []CommandSpec) error {
	if m.closed {
		return ErrAlreadyClosed
	}
	return m.engine.RunBatch(m.transport, cmds)
}

// Close releases the transport. After calling Close(), the modem cannot be
// reused.
func (m *Modem) Close() error {
	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true
	m.logger.Debug("Closing modem connection")
	return m.transport.Close()
}
