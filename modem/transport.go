package modem

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/warthog618/modem/trace"
	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to a GSM modem.
//
// A Transport is assumed to be already connected and ready for use. Typical
// implementations include serial ports, TCP connections to emulators, or
// in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a GSM modem.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may block and
	// should respect cancellation of ctx.
	Dial(ctx context.Context) (Transport, error)
}

// PowerSwitch hard resets the modem by cycling its power or reset line.
type PowerSwitch interface {
	PowerCycle() error
}

// DefaultBaudRate is used when a SerialDialer has no Mode.
const DefaultBaudRate = 115200

// powerCycleHold is how long the reset line is held low.
const powerCycleHold = 500 * time.Millisecond

// SerialDialer opens a GSM modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	PortName string
	Mode     *serial.Mode
	// Trace logs every byte exchanged with the modem at debug level.
	Trace  bool
	Logger *slog.Logger
}

// Dial opens the serial port. The returned Transport also implements
// PowerSwitch by pulsing DTR, which is wired to the modem reset line.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("gsm: context is nil")
	}
	if d.PortName == "" {
		return nil, ErrNoPort
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: DefaultBaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("gsm: open %s: %w", d.PortName, err)
	}

	return newSerialTransport(port, d.Trace, d.Logger), nil
}

type serialTransport struct {
	port serial.Port
	rw   io.ReadWriter
}

func newSerialTransport(port serial.Port, traced bool, logger *slog.Logger) *serialTransport {
	t := &serialTransport{port: port, rw: port}
	if traced {
		if logger == nil {
			logger = slog.Default()
		}
		traceLog := slog.NewLogLogger(logger.With("component", "trace").Handler(), slog.LevelDebug)
		t.rw = trace.New(port, trace.WithLogger(traceLog))
	}
	return t
}

func (t *serialTransport) Read(p []byte) (int, error) {
	return t.rw.Read(p)
}

func (t *serialTransport) Write(p []byte) (int, error) {
	return t.rw.Write(p)
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}

// PowerCycle drops DTR and raises it again after powerCycleHold.
func (t *serialTransport) PowerCycle() error {
	if err := t.port.SetDTR(false); err != nil {
		return fmt.Errorf("gsm: drop DTR: %w", err)
	}
	time.AfterFunc(powerCycleHold, func() {
		_ = t.port.SetDTR(true)
	})
	return nil
}
