package modem

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	rxQueueSize = 512
	txQueueSize = 32
	readChunk   = 64
)

// SerialTransport is the byte level view of the modem line used by Machine.
type SerialTransport interface {
	// TrySend queues p for transmission. It is all-or-nothing and returns
	// false when the transmit queue is full; the caller must retry.
	TrySend(p []byte) bool
	// RecvByte returns the next received byte without blocking.
	RecvByte() (byte, bool)
	// Pending is signalled when received bytes are waiting.
	Pending() <-chan struct{}
	// Err delivers the error that stopped the receiver.
	Err() <-chan error
}

// Port implements SerialTransport over a Transport with bounded queues. A
// reader goroutine fills the receive queue and a writer goroutine drains the
// transmit queue.
type Port struct {
	transport Transport
	logger    *slog.Logger

	rx      chan byte
	tx      chan []byte
	pending chan struct{}
	errc    chan error
	done    chan struct{}

	overruns atomic.Int64
	once     sync.Once
	wg       sync.WaitGroup
}

// NewPort starts the reader and writer goroutines over t.
func NewPort(t Transport, logger *slog.Logger) *Port {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Port{
		transport: t,
		logger:    logger,
		rx:        make(chan byte, rxQueueSize),
		tx:        make(chan []byte, txQueueSize),
		pending:   make(chan struct{}, 1),
		errc:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	p.wg.Add(2)
	go p.readLoop()
	go p.writeLoop()
	return p
}

func (p *Port) readLoop() {
	defer p.wg.Done()
	buf := make([]byte, readChunk)
	for {
		n, err := p.transport.Read(buf)
		dropped := 0
		for _, b := range buf[:n] {
			select {
			case p.rx <- b:
			default:
				dropped++
			}
		}
		if dropped > 0 {
			total := p.overruns.Add(int64(dropped))
			p.logger.Warn("Serial receive overrun", "dropped", dropped, "total", total)
		}
		if n > 0 {
			select {
			case p.pending <- struct{}{}:
			default:
			}
		}
		if err != nil {
			select {
			case <-p.done:
				err = ErrPortClosed
			default:
			}
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: %w", ErrPortClosed, err)
			}
			p.errc <- err
			return
		}
	}
}

func (p *Port) writeLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case data := <-p.tx:
			// A failed write is dropped so the queue always drains.
			if _, err := p.transport.Write(data); err != nil {
				p.logger.Warn("Serial write failed", "error", err, "bytes", len(data))
			}
		}
	}
}

// TrySend implements SerialTransport.
func (p *Port) TrySend(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.tx <- append([]byte(nil), data...):
		return true
	default:
		return false
	}
}

// RecvByte implements SerialTransport.
func (p *Port) RecvByte() (byte, bool) {
	select {
	case b := <-p.rx:
		return b, true
	default:
		return 0, false
	}
}

// Pending implements SerialTransport.
func (p *Port) Pending() <-chan struct{} {
	return p.pending
}

// Err implements SerialTransport.
func (p *Port) Err() <-chan error {
	return p.errc
}

// Overruns returns the number of received bytes dropped because the receive
// queue was full.
func (p *Port) Overruns() int64 {
	return p.overruns.Load()
}

// Close stops the writer, closes the transport and waits for both
// goroutines to finish.
func (p *Port) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.transport.Close()
		p.wg.Wait()
	})
	return err
}
