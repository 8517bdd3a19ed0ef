package modem

import (
	"context"
	"io"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an established, bidirectional byte stream to a modem.
//
// A Transport is assumed to be already connected and ready for use. Besides
// writing, it exposes the non-blocking "how much is buffered" query the
// exchange engine polls on, and a read that drains whatever is currently
// buffered without waiting for more.
type Transport interface {
	io.WriteCloser

	// Available reports the number of received bytes that can be read
	// without blocking. It must return promptly.
	Available() (int, error)

	// ReadAvailable returns all bytes received so far and clears them from
	// the transport. It returns an empty slice when nothing is buffered.
	ReadAvailable() ([]byte, error)
}

// Dialer opens a Transport to a modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or a test double) and is intended to be used during session
// construction only. Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It may
	// perform blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport cannot be
	// established.
	Dial(ctx context.Context) (Transport, error)
}
