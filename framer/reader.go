package framer

import (
	"bytes"
	"strconv"
)

const (
	backspace = 0x08
	del       = 0x7f
	ctrlA     = 0x01
	ctrlC     = 0x03
)

var (
	ipdPrefix      = []byte("+IPD,")
	cmtPrefix      = []byte("+CMT:")
	networkTimeURC = []byte("*PSUTTZ:")
	prompt         = []byte("> ")
)

// Reader is a byte-at-a-time framing state machine over a fixed buffer.
//
// A Reader is not safe for concurrent use; it is owned by the goroutine that
// feeds it.
type Reader struct {
	buf  [Capacity]byte
	pos  int
	mode Mode

	caller      string
	interactive bool
	armed       bool
	lastCR      bool

	dropped int
}

// NewReader returns a Reader in line mode.
func NewReader() *Reader {
	return &Reader{}
}

// Mode returns the current framing mode.
func (r *Reader) Mode() Mode {
	return r.mode
}

// Dropped returns the number of bytes discarded because the buffer was full.
func (r *Reader) Dropped() int {
	return r.dropped
}

// SetInteractive enables terminal line editing: backspace and DEL remove the
// last byte, Ctrl-A and Ctrl-C clear the line, and a bare CR ends the line.
func (r *Reader) SetInteractive(on bool) {
	r.interactive = on
}

// ExpectPrompt arms the reader to report the next "> " as a prompt frame.
// The prompt has no line terminator so it is only recognised when armed.
func (r *Reader) ExpectPrompt() {
	r.armed = true
}

// Disarm cancels a pending ExpectPrompt.
func (r *Reader) Disarm() {
	r.armed = false
}

// Reset discards any partial frame and returns to line mode.
func (r *Reader) Reset() {
	r.pos = 0
	r.mode = Mode{}
	r.caller = ""
	r.armed = false
	r.lastCR = false
}

// Feed consumes one byte and returns a frame when one completes.
func (r *Reader) Feed(b byte) (Frame, bool) {
	switch r.mode.Kind {
	case ModeSMS:
		return r.feedSMS(b)
	case ModeBinary:
		return r.feedBinary(b)
	default:
		return r.feedLine(b)
	}
}

func (r *Reader) feedLine(b byte) (Frame, bool) {
	lastCR := r.lastCR
	r.lastCR = false

	if r.interactive {
		switch b {
		case backspace, del:
			if r.pos > 0 {
				r.pos--
			}
			return Frame{}, false
		case ctrlA, ctrlC:
			r.pos = 0
			return Frame{}, false
		case '\r':
			r.lastCR = true
			return r.endLine()
		case '\n':
			if lastCR {
				return Frame{}, false
			}
			return r.endLine()
		}
	}

	switch b {
	case '\r':
		return Frame{}, false
	case '\n':
		return r.endLine()
	}

	if !r.store(b) {
		return Frame{}, false
	}

	line := r.buf[:r.pos]
	if b == ':' && bytes.HasPrefix(line, ipdPrefix) {
		if n, err := strconv.ParseUint(string(line[len(ipdPrefix):r.pos-1]), 10, 16); err == nil {
			r.pos = 0
			if n > 0 {
				r.mode = Mode{Kind: ModeBinary, Remaining: uint16(n)}
			}
			return Frame{}, false
		}
	}

	if r.armed && bytes.Equal(line, prompt) {
		r.armed = false
		r.pos = 0
		return Frame{Kind: KindPrompt, Body: r.buf[:0]}, true
	}

	return Frame{}, false
}

// endLine completes the buffered line. A line truncated by a full buffer is
// delivered with whatever fitted.
func (r *Reader) endLine() (Frame, bool) {
	line := r.buf[:r.pos]
	r.pos = 0

	switch {
	case bytes.HasPrefix(line, networkTimeURC):
		return Frame{}, false
	case bytes.HasPrefix(line, cmtPrefix):
		caller, n, ok := parseSMSHeader(line)
		if !ok {
			break
		}
		if n == 0 {
			return Frame{Kind: KindSMS, Caller: caller, Body: r.buf[:0]}, true
		}
		r.caller = caller
		r.mode = Mode{Kind: ModeSMS, Remaining: n}
		return Frame{}, false
	}

	return Frame{Kind: KindLine, Body: line}, true
}

func (r *Reader) feedSMS(b byte) (Frame, bool) {
	if b == '\r' || b == '\n' {
		b = ' '
	}
	r.store(b)
	r.mode.Remaining--
	if r.mode.Remaining > 0 {
		return Frame{}, false
	}

	f := Frame{Kind: KindSMS, Caller: r.caller, Body: r.buf[:r.pos]}
	r.pos = 0
	r.caller = ""
	r.mode = Mode{}
	return f, true
}

func (r *Reader) feedBinary(b byte) (Frame, bool) {
	r.mode.Remaining--
	last := r.mode.Remaining == 0
	if last {
		r.mode = Mode{}
	}

	switch b {
	case '\r':
	case '\n':
		if r.pos > 0 {
			return r.binaryLine(), true
		}
		return Frame{}, false
	default:
		r.store(b)
	}

	if last && r.pos > 0 {
		return r.binaryLine(), true
	}
	return Frame{}, false
}

func (r *Reader) binaryLine() Frame {
	f := Frame{Kind: KindBinaryLine, Body: r.buf[:r.pos]}
	r.pos = 0
	return f
}

// store appends b unless the buffer is full, in which case the byte is
// dropped and counted.
func (r *Reader) store(b byte) bool {
	if r.pos >= Capacity {
		r.dropped++
		return false
	}
	r.buf[r.pos] = b
	r.pos++
	return true
}

// parseSMSHeader extracts the caller, the first quoted token, and the body
// length, the last comma separated field, from a +CMT: header.
func parseSMSHeader(line []byte) (string, uint16, bool) {
	comma := bytes.LastIndexByte(line, ',')
	if comma < 0 {
		return "", 0, false
	}
	n, err := strconv.ParseUint(string(bytes.TrimSpace(line[comma+1:])), 10, 16)
	if err != nil {
		return "", 0, false
	}

	var caller []byte
	if open := bytes.IndexByte(line, '"'); open >= 0 {
		rest := line[open+1:]
		if end := bytes.IndexByte(rest, '"'); end >= 0 {
			caller = rest[:end]
		}
	}
	if len(caller) > CallerWidth {
		caller = caller[:CallerWidth]
	}
	return string(caller), uint16(n), true
}
