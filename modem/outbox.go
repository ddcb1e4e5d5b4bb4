package modem

import (
	"fmt"
	"slices"
	"sync"
)

// DefaultOutboxSize bounds the number of queued outbound messages.
const DefaultOutboxSize = 16

// MessageKind selects the channel an outbound message uses.
type MessageKind int

const (
	// MessageServer is one line to the server over the TCP link.
	MessageServer MessageKind = iota
	// MessageSMS is a text SMS to Message.To.
	MessageSMS
	// MessageUSSD requests the USSD service code in Message.Text.
	MessageUSSD
)

func (k MessageKind) String() string {
	switch k {
	case MessageServer:
		return "server"
	case MessageSMS:
		return "sms"
	case MessageUSSD:
		return "ussd"
	}
	return fmt.Sprintf("message(%d)", int(k))
}

func (k MessageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Message is an outbound item waiting for the Ready state.
type Message struct {
	Kind MessageKind `json:"kind"`
	To   string      `json:"to,omitempty"`
	Text string      `json:"text"`
}

// Outbox is a bounded FIFO of outbound messages. It is safe for concurrent
// use.
type Outbox struct {
	mu    sync.Mutex
	items []Message
	size  int
}

// NewOutbox returns an Outbox holding at most size messages. A size of zero
// selects DefaultOutboxSize.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{size: size}
}

// Push appends msg and reports false when the outbox is full.
func (o *Outbox) Push(msg Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) >= o.size {
		return false
	}
	o.items = append(o.items, msg)
	return true
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// pop removes the oldest message that can be sent. Server messages are
// skipped while the TCP link is down.
func (o *Outbox) pop(link bool) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, msg := range o.items {
		if msg.Kind == MessageServer && !link {
			continue
		}
		o.items = append(o.items[:i], o.items[i+1:]...)
		return msg, true
	}
	return Message{}, false
}

// Snapshot returns a copy of the queued messages, oldest first.
func (o *Outbox) Snapshot() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.items)
}
