package modem

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a Modem
	// or transport that has no underlying connection.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Modem or
	// transport that has already been closed, or when it is used afterwards.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrPortNameRequired is returned by SerialDialer when no port is set.
	ErrPortNameRequired = errors.New("modem: serial port name is required")

	// ErrNilContext is returned by SerialDialer when called with a nil context.
	ErrNilContext = errors.New("modem: context is nil")

	// ErrInvalidCommand is returned when a CommandSpec cannot be executed as
	// described, for example when it has no text or no attempts.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrValidation marks a single attempt whose response did not satisfy
	// the command's checks. Such attempts are retried and never surface
	// from Execute on their own.
	ErrValidation = errors.New("response validation failed")

	// ErrRetryExhausted is the terminal outcome of an exchange whose every
	// attempt failed validation. Execute reports it as an *ExhaustedError.
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrTransport marks I/O failures reported by the Transport. They abort
	// the exchange without further attempts.
	ErrTransport = errors.New("transport failure")
)

// ExhaustedError reports a command that never produced an acceptable
// response. It matches ErrRetryExhausted with errors.Is.
type ExhaustedError struct {
	Command  string
	Attempts int
	// Last is the result of the final attempt.
	Last *ExchangeResult
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("command %q: %s after %d attempt(s)", e.Command, ErrRetryExhausted, e.Attempts)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// TransportError wraps an I/O failure that occurred while exchanging a
// command. It matches ErrTransport with errors.Is and unwraps to the cause.
type TransportError struct {
	// Op is the failing step: "write", "poll" or "read".
	Op      string
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s command %q: %v", e.Op, e.Command, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
