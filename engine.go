package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
	"i4.energy/across/vmu/modem"
)

// ErrNotRunning is returned by Engine.Stop while no machine is running.
var ErrNotRunning = errors.New("modem engine is not running")

// Engine owns the modem machine. It opens the serial port, runs a machine
// over it, and starts over from scratch after a device reset. Transport
// failures are retried with exponential backoff.
type Engine struct {
	dialer  modem.Dialer
	config  modem.Config
	logger  *slog.Logger
	backoff *backoff.Backoff

	current atomic.Pointer[modem.Machine]
	last    atomic.Pointer[modem.Status]
}

// NewEngine returns an Engine creating machines from config.
func NewEngine(dialer modem.Dialer, config modem.Config, logger *slog.Logger) *Engine {
	return &Engine{
		dialer: dialer,
		config: config,
		logger: logger.With("component", "engine"),
		backoff: &backoff.Backoff{
			Min:    time.Second,
			Max:    time.Minute,
			Factor: 2,
			Jitter: true,
		},
	}
}

// Run blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	for {
		err := e.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if errors.Is(err, modem.ErrDeviceReset) {
			e.logger.Warn("Device reset, restarting modem engine")
			e.backoff.Reset()
			continue
		}

		delay := e.backoff.Duration()
		e.logger.Error("Modem engine stopped", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (e *Engine) runOnce(ctx context.Context) error {
	transport, err := e.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial modem: %w", err)
	}

	port := modem.NewPort(transport, e.logger)
	defer port.Close()

	config := e.config
	if config.Power == nil {
		if power, ok := transport.(modem.PowerSwitch); ok {
			config.Power = power
		}
	}

	m := modem.NewMachine(config, port)
	e.current.Store(m)
	defer func() {
		st := m.Status()
		e.last.Store(&st)
		e.current.Store(nil)
	}()

	e.logger.Info("Modem engine started")
	return m.Run(ctx)
}

// Status returns the status of the running machine, or the last one seen
// while the engine is between machines.
func (e *Engine) Status() modem.Status {
	if m := e.current.Load(); m != nil {
		return m.Status()
	}
	if st := e.last.Load(); st != nil {
		return *st
	}
	return modem.Status{}
}

// Stop asks the running machine for a controlled device reset.
func (e *Engine) Stop(ctx context.Context) error {
	m := e.current.Load()
	if m == nil {
		return ErrNotRunning
	}
	return m.Stop(ctx)
}
