package modem

import (
	"bytes"
	"strings"
)

// TestTransport is a scripted in-memory Transport for tests.
//
// Every written command line consumes the next queued reply. A reply becomes
// visible to Available after the number of polls it was queued with, which
// makes slow and silent devices easy to simulate. Writes are recorded.
// Exported for use in tests of other packages.
type TestTransport struct {
	replies []testReply
	pending []byte
	delay   int
	writes  []string
	closed  bool

	// Polls counts Available calls.
	Polls int
}

type testReply struct {
	data  string
	delay int
}

// NewTestTransport creates a new test transport for testing.
func NewTestTransport() *TestTransport {
	return &TestTransport{}
}

// Reply queues data as the answer to the next unanswered command.
func (t *TestTransport) Reply(data string) *TestTransport {
	return t.ReplyAfter(0, data)
}

// ReplyAfter queues data that only becomes available after polls calls to
// Available have reported nothing.
func (t *TestTransport) ReplyAfter(polls int, data string) *TestTransport {
	t.replies = append(t.replies, testReply{data: data, delay: polls})
	return t
}

// Silence queues a command that gets no answer at all.
func (t *TestTransport) Silence() *TestTransport {
	return t.Reply("")
}

// Writes returns the command lines written so far, terminators removed.
func (t *TestTransport) Writes() []string {
	return append([]string(nil), t.writes...)
}

func (t *TestTransport) Write(p []byte) (int, error) {
	if t.closed {
		return 0, ErrAlreadyClosed
	}
	for _, line := range strings.SplitAfter(string(p), "\r") {
		if line == "" {
			continue
		}
		t.writes = append(t.writes, strings.TrimSuffix(line, "\r"))
		if len(t.replies) > 0 {
			next := t.replies[0]
			t.replies = t.replies[1:]
			t.pending = append(t.pending, next.data...)
			t.delay = next.delay
		}
	}
	return len(p), nil
}

func (t *TestTransport) Available() (int, error) {
	if t.closed {
		return 0, ErrAlreadyClosed
	}
	t.Polls++
	if t.delay > 0 {
		t.delay--
		return 0, nil
	}
	return len(t.pending), nil
}

func (t *TestTransport) ReadAvailable() ([]byte, error) {
	if t.closed {
		return nil, ErrAlreadyClosed
	}
	out := bytes.Clone(t.pending)
	t.pending = t.pending[:0]
	return out, nil
}

func (t *TestTransport) Close() error {
	if t.closed {
		return ErrAlreadyClosed
	}
	t.closed = true
	return nil
}
