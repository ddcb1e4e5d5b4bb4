package modem_test

import (
	"io"
	"strings"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/vmu/modem"
)

// MockSequenceBuilder scripts the reads a Port performs on a MockTransport.
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

// Receive delivers data in a single read.
func (b *MockSequenceBuilder) Receive(data string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, data), nil
		}),
	)
	return b
}

// Flood delivers the given number of reads, each of size filler bytes.
func (b *MockSequenceBuilder) Flood(reads, size int) *MockSequenceBuilder {
	for range reads {
		b.Receive(strings.Repeat("A", size))
	}
	return b
}

// EOF ends the stream.
func (b *MockSequenceBuilder) EOF() *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Read(gomock.Any()).Return(0, io.EOF),
	)
	return b
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}
