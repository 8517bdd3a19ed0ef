package modem_test

import (
	"i4.energy/across/atrunner/modem"
)

// MockSequenceBuilder records the transport calls of consecutive exchange
// attempts so they can be passed to gomock.InOrder.
type MockSequenceBuilder struct {
	transport *modem.MockTransport
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Reply expects cmd to be written and answered on the first poll.
func (b *MockSequenceBuilder) Reply(cmd, resp string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(cmd+"\r")).Return(len(cmd)+1, nil),
		b.transport.EXPECT().Available().Return(len(resp), nil),
		b.transport.EXPECT().ReadAvailable().Return([]byte(resp), nil),
	)
	return b
}

// Silent expects cmd to be written and polls to find nothing polls times.
func (b *MockSequenceBuilder) Silent(cmd string, polls int) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(cmd+"\r")).Return(len(cmd)+1, nil),
		b.transport.EXPECT().Available().Return(0, nil).Times(polls),
	)
	return b
}

func (b *MockSequenceBuilder) CregRegistered() *MockSequenceBuilder {
	return b.Reply("AT+CREG?", "AT+CREG?\r\r\n+CREG: 0,1\r\n\r\nOK\r\n")
}

func (b *MockSequenceBuilder) CregSearching() *MockSequenceBuilder {
	return b.Reply("AT+CREG?", "AT+CREG?\r\r\n+CREG: 0,2\r\n\r\nOK\r\n")
}

func (b *MockSequenceBuilder) Error(cmd string) *MockSequenceBuilder {
	return b.Reply(cmd, cmd+"\r\r\nERROR\r\n")
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}
