// Package framer turns the raw modem byte stream into discrete frames.
//
// The modem multiplexes command replies, unsolicited result codes, SMS
// bodies and TCP payload on one serial line. A Reader consumes that stream
// one byte at a time and switches between three framing modes: plain lines,
// a fixed-length SMS body announced by a +CMT: header, and a length-prefixed
// binary block announced by +IPD,<n>:.
package framer

import "fmt"

const (
	// Capacity is the size of the frame buffer.
	Capacity = 200
	// CallerWidth bounds the telephone number taken from a +CMT: header.
	CallerWidth = 20
)

// Kind identifies the type of a Frame.
type Kind int

const (
	KindLine       Kind = iota // newline terminated text
	KindSMS                    // SMS body following a +CMT: header
	KindBinaryLine             // one line of a +IPD block
	KindPrompt                 // "> " data input prompt
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindSMS:
		return "sms"
	case KindBinaryLine:
		return "binary"
	case KindPrompt:
		return "prompt"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Frame is one complete protocol unit.
//
// Body borrows the Reader's buffer and is only valid until the next call to
// Feed. Callers that keep it must copy.
type Frame struct {
	Kind   Kind
	Caller string
	Body   []byte
}

// Text returns a copy of the body as a string.
func (f Frame) Text() string {
	return string(f.Body)
}

// ModeKind is the framing mode of a Reader.
type ModeKind int

const (
	ModeLines ModeKind = iota
	ModeSMS
	ModeBinary
)

func (k ModeKind) String() string {
	switch k {
	case ModeLines:
		return "lines"
	case ModeSMS:
		return "sms"
	case ModeBinary:
		return "binary"
	}
	return fmt.Sprintf("mode(%d)", int(k))
}

// Mode is the current framing mode. Remaining counts the bytes left in an SMS
// body or binary block and is zero in line mode.
type Mode struct {
	Kind      ModeKind
	Remaining uint16
}
