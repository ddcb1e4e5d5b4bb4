package modem

import "errors"

var (
	// ErrNoPort is returned by SerialDialer when no serial port name is set.
	ErrNoPort = errors.New("gsm: serial port name is required")

	// ErrNoServer is returned when an APN is configured without a server to
	// connect to.
	//
	// Without an APN the machine stays SMS-only and never opens a TCP link,
	// so a server is only required together with an APN.
	ErrNoServer = errors.New("APN configured without server")

	// ErrPortClosed is returned when the serial port was closed while the
	// machine was running.
	ErrPortClosed = errors.New("serial port closed")

	// ErrMachineRunning is returned when Run is called on a Machine that is
	// already running.
	ErrMachineRunning = errors.New("machine already running")

	// ErrDeviceReset is returned by Run when the machine reached Stop.
	//
	// It stands for a full device reset: the caller must discard the Machine
	// and its Port and start again from scratch.
	ErrDeviceReset = errors.New("device reset")
)
