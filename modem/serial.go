package modem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the factory setting of most cellular modules.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single probe of the port for pending input.
	DefaultReadTimeout = 10 * time.Millisecond
	// DefaultOpenTimeout bounds how long Dial waits for the port to open.
	DefaultOpenTimeout = 10 * time.Second

	readChunkSize = 4096
)

// SerialDialer opens a modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB2" or "COM9".
	PortName string
	// Mode is the serial line configuration. When nil, 115200 8N1 is used.
	Mode *serial.Mode
	// ReadTimeout is how long a single read waits for data before reporting
	// that nothing is pending. Defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
	// OpenTimeout bounds opening the port. Defaults to DefaultOpenTimeout.
	OpenTimeout time.Duration

	// open is replaced in tests.
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

// Dial opens the serial port and wraps it in a SerialTransport.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if d.PortName == "" {
		return nil, ErrPortNameRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: DefaultBaudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}
	openTimeout := d.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}
	open := d.open
	if open == nil {
		open = serial.Open
	}

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	type result struct {
		port serial.Port
		err  error
	}
	done := make(chan result, 1)
	go func() {
		port, err := open(d.PortName, mode)
		done <- result{port: port, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", d.PortName, res.err)
		}
		t, err := NewSerialTransport(res.port, d.ReadTimeout)
		if err != nil {
			res.port.Close()
			return nil, err
		}
		return t, nil
	case <-ctx.Done():
		// Release the port if the open completes after we gave up on it.
		go func() {
			if res := <-done; res.err == nil {
				res.port.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// SerialTransport adapts a serial.Port to the Transport interface.
//
// serial.Port has no "bytes waiting" query, so Available performs one short,
// timeout-bounded read and keeps what it got in a pending buffer until
// ReadAvailable hands it out.
type SerialTransport struct {
	port    serial.Port
	chunk   []byte
	pending []byte
	closed  bool
}

// NewSerialTransport configures port with the given read timeout and wraps it.
// A zero timeout selects DefaultReadTimeout.
func NewSerialTransport(port serial.Port, readTimeout time.Duration) (*SerialTransport, error) {
	if port == nil {
		return nil, ErrNotInitialized
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &SerialTransport{
		port:  port,
		chunk: make([]byte, readChunkSize),
	}, nil
}

func (s *SerialTransport) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrAlreadyClosed
	}
	return s.port.Write(p)
}

// Available reports the pending byte count, reading once from the port when
// nothing is pending yet.
func (s *SerialTransport) Available() (int, error) {
	if s.closed {
		return 0, ErrAlreadyClosed
	}
	if len(s.pending) > 0 {
		return len(s.pending), nil
	}
	if err := s.fill(); err != nil {
		return 0, err
	}
	return len(s.pending), nil
}

// ReadAvailable drains the port until a read times out empty and returns
// everything collected, including input buffered by Available.
func (s *SerialTransport) ReadAvailable() ([]byte, error) {
	if s.closed {
		return nil, ErrAlreadyClosed
	}
	for {
		before := len(s.pending)
		if err := s.fill(); err != nil {
			return nil, err
		}
		if len(s.pending) == before {
			break
		}
	}
	out := s.pending
	s.pending = nil
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// fill performs a single read. A read timeout yields (0, nil) in
// go.bug.st/serial, which leaves pending untouched.
func (s *SerialTransport) fill() error {
	n, err := s.port.Read(s.chunk)
	if n > 0 {
		s.pending = append(s.pending, s.chunk[:n]...)
	}
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
			return ErrAlreadyClosed
		}
		return err
	}
	return nil
}

func (s *SerialTransport) Close() error {
	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true
	s.pending = nil
	return s.port.Close()
}
