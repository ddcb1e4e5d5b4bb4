package modem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"i4.energy/across/vmu/at"
	"i4.energy/across/vmu/framer"
	"i4.energy/across/vmu/notify"
)

const (
	// tickInterval drives Tick10th; every tenth call is a Tick1s.
	tickInterval = 100 * time.Millisecond
	// sendSpin is the pause between attempts while the transmit queue is full.
	sendSpin = time.Millisecond

	maxCopsRetries    = 20
	maxNetPauses      = 5
	persistentResets  = 3
	initRetryInterval = 3
	copsPollInterval  = 10
	netWatchdogTicks  = 120
	linkTimeoutTicks  = 90
	inFlightTicks     = 30

	// payloadDelayTenths is the pause between AT+CIPSEND and its payload.
	payloadDelayTenths = 1
)

type request int

const (
	requestStop request = iota
)

// Status is a snapshot of the modem engine.
type Status struct {
	State        State     `json:"state"`
	Indicator    Indicator `json:"indicator"`
	Registration string    `json:"registration"`
	Link         bool      `json:"link"`
	Carrier      string    `json:"carrier,omitempty"`
	ICCID        string    `json:"iccid,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	Signal       int       `json:"signal"`
	Clock        time.Time `json:"clock,omitzero"`
	Resets       int       `json:"resets"`
	HardResets   int       `json:"hard_resets"`
	CopsRetries  int       `json:"cops_retries"`
	NetPauses    int       `json:"net_pauses"`
	Outbox       int       `json:"outbox"`
}

// Machine drives the modem from power-up to the Ready state and keeps it
// there.
//
// All state is owned by the goroutine running Run. Status, Stop and the
// Outbox and Queue collaborators are safe to use from other goroutines;
// everything else must be called from the Run goroutine, or only while Run
// is not running.
type Machine struct {
	config Config
	serial SerialTransport
	reader *framer.Reader
	logger *slog.Logger
	queue  *notify.Queue
	outbox *Outbox

	// state is the current state and timeout its pending automatic
	// transition, valid while hasTimeout is set.
	state      State
	timeout    timeout
	hasTimeout bool
	stateTicks int
	seconds    int
	tenths     int

	step        netStep
	simInserted bool
	pinReady    bool

	copsRetries   int
	netPauses     int
	hardResets    int
	unreadyResets int
	resets        int

	registration at.Registration
	netWatchdog  int
	link         bool
	linkTimer    int
	inFlight     int
	inFlightKind MessageKind
	payload      []byte
	payloadDelay int
	indicator    Indicator

	rxTimeout    int
	rxSilence    int
	resetPending bool

	carrier string
	iccid   string
	owner   string
	signal  int
	clock   time.Time

	requests chan request
	done     <-chan struct{}
	running  atomic.Bool

	mu     sync.Mutex
	status Status
}

// NewMachine returns a Machine in FirstRun talking over serial.
func NewMachine(config Config, serial SerialTransport) *Machine {
	config.setDefaults()
	rxTimeout := int(config.RxTimeout / time.Second)
	if rxTimeout < 1 {
		rxTimeout = 1
	}
	m := &Machine{
		config:       config,
		serial:       serial,
		reader:       framer.NewReader(),
		logger:       config.Logger.With("component", "modem"),
		queue:        config.Queue,
		outbox:       config.Outbox,
		registration: at.RegUnknown,
		rxTimeout:    rxTimeout,
		rxSilence:    rxTimeout,
		requests:     make(chan request, 4),
	}
	m.EnterState(StateFirstRun)
	return m
}

// Run is the event loop. It feeds received bytes through the frame reader,
// drives the tickers and serves operator requests until ctx is done, the
// serial transport fails, or the machine reaches Stop. In the last case it
// returns ErrDeviceReset.
func (m *Machine) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrMachineRunning
	}
	defer m.running.Store(false)
	m.done = ctx.Done()
	defer func() { m.done = nil }()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for !m.resetPending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.serial.Pending():
			m.Poll()
		case err := <-m.serial.Err():
			m.Poll()
			return fmt.Errorf("serial transport: %w", err)
		case req := <-m.requests:
			m.handle(req)
		case <-ticker.C:
			m.Tick10th()
		}
	}
	return ErrDeviceReset
}

// Stop asks the machine to close the socket, reset the modem and then the
// device. It does not wait for the shutdown to complete.
func (m *Machine) Stop(ctx context.Context) error {
	select {
	case m.requests <- requestStop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) handle(req request) {
	switch req {
	case requestStop:
		m.logger.Info("Stop requested")
		m.EnterState(StateHardStop)
	}
}

// Status returns the latest snapshot.
func (m *Machine) Status() Status {
	m.mu.Lock()
	st := m.status
	m.mu.Unlock()
	st.Outbox = m.outbox.Len()
	return st
}

// PendingTimeout returns the automatic transition armed by the current
// state and the ticks left before it fires.
func (m *Machine) PendingTimeout() (State, int, bool) {
	return m.timeout.next, m.timeout.ticks, m.hasTimeout
}

// ResetPending reports whether the machine reached Stop.
func (m *Machine) ResetPending() bool {
	return m.resetPending
}

// Poll feeds every received byte through the frame reader and processes the
// completed frames in order.
func (m *Machine) Poll() {
	for !m.resetPending {
		b, ok := m.serial.RecvByte()
		if !ok {
			return
		}
		if f, ok := m.reader.Feed(b); ok {
			m.OnFrame(f)
		}
	}
}

// OnFrame handles one completed frame. The frame body is only read during
// the call.
func (m *Machine) OnFrame(f framer.Frame) {
	m.rxSilence = m.rxTimeout

	switch f.Kind {
	case framer.KindSMS:
		m.logger.Debug("SMS received", "caller", f.Caller, "length", len(f.Body))
		m.config.Dispatcher.OnSMS(f.Caller, f.Text())
	case framer.KindBinaryLine:
		m.logger.Debug("Server line received", "line", f.Text())
		m.config.Dispatcher.OnBinaryLine(f.Text())
	case framer.KindPrompt:
		m.flushPayload()
	case framer.KindLine:
		m.onLine(f.Text())
	}
	m.publish()
}

// Tick10th is the tenth of a second ticker.
func (m *Machine) Tick10th() {
	if m.payloadDelay > 0 {
		m.payloadDelay--
		if m.payloadDelay == 0 {
			m.flushPayload()
		}
	}
	m.tenths++
	m.Poll()
	if m.tenths%10 == 0 {
		m.Tick1s()
	}
}

// Tick1s runs the pending timeout, the per state retries and the receive
// silence watchdog. It also drives the slower tickers.
func (m *Machine) Tick1s() {
	m.seconds++
	m.queue.Tick()
	m.rxWatchdogTick()

	if !m.resetPending {
		if m.hasTimeout {
			m.timeout.ticks--
		}
		if m.hasTimeout && m.timeout.ticks <= 0 {
			next := m.timeout.next
			m.hasTimeout = false
			m.EnterState(next)
		} else {
			m.stateTicks++
			m.stateTick()
		}
	}

	if !m.resetPending {
		m.periodic()
	}
	m.publish()
}

func (m *Machine) periodic() {
	if m.seconds%30 == 0 {
		m.Tick30s()
	}
	if m.seconds%60 == 0 {
		m.Tick60s()
	}
	if m.seconds%300 == 0 {
		m.Tick300s()
	}
	if m.seconds%600 == 0 {
		m.Tick600s()
	}
	if m.seconds%3600 == 0 {
		m.Tick3600s()
	}
}

// Tick30s polls registration, socket state, clock and signal while Ready.
func (m *Machine) Tick30s() {
	if m.state == StateReady && m.inFlight == 0 {
		m.send(at.CmdStatus)
	}
}

// Tick60s logs a status summary.
func (m *Machine) Tick60s() {
	m.logger.Info("Modem status",
		"state", m.state,
		"registration", m.registration,
		"link", m.link,
		"signal", m.signal,
		"carrier", m.carrier,
		"error", m.indicator.Error,
	)
}

// Tick300s forgets past retries once the machine has been connected for a
// while.
func (m *Machine) Tick300s() {
	if m.state != StateReady || (m.config.APN != "" && !m.link) {
		return
	}
	m.hardResets = 0
	m.netPauses = 0
	m.copsRetries = 0
}

// Tick600s requests a status report.
func (m *Machine) Tick600s() {
	m.queue.Request(notify.KindStatus)
}

// Tick3600s requests an environment report.
func (m *Machine) Tick3600s() {
	m.queue.Request(notify.KindEnvironment)
}

func (m *Machine) rxWatchdogTick() {
	if m.rxSilence == 0 {
		return
	}
	m.rxSilence--
	if m.rxSilence > 0 {
		return
	}
	m.logger.Error("No data from modem", "timeout", m.rxTimeout)
	m.setError(ErrorSilence)
	m.EnterState(StateStop)
}

// EnterState is the single transition point. It replaces any pending
// timeout with the one of s before running the entry actions of s, which
// may in turn enter another state.
func (m *Machine) EnterState(s State) {
	from := m.state
	m.state = s
	m.stateTicks = 0
	m.timeout, m.hasTimeout = stateTimeouts[s]
	m.reader.SetInteractive(s == StateFirstRun || s == StateDiagMode)
	m.indicator.Phase = phaseOf(s)

	m.logger.Info("Modem state changed", "from", from, "to", s, "timeout", m.timeout.ticks)
	m.enter(s)
	m.publish()
}

func (m *Machine) setError(e ErrorCode) {
	if m.indicator.Error == ErrorRegistration && m.unreadyResets >= persistentResets {
		return
	}
	m.indicator.Error = e
}

func (m *Machine) clearError(e ErrorCode) {
	if m.indicator.Error == e {
		m.indicator.Error = ErrorNone
	}
}

// send writes an AT command, spinning while the transmit queue is full.
func (m *Machine) send(cmd string) {
	m.logger.Debug("Modem command", "cmd", strings.TrimRight(cmd, "\r\n"))
	m.write([]byte(cmd))
}

func (m *Machine) write(p []byte) {
	for !m.serial.TrySend(p) {
		select {
		case <-m.done:
			return
		case <-time.After(sendSpin):
		}
	}
}

func (m *Machine) powerCycle() {
	if m.config.Power == nil {
		m.logger.Warn("No power switch configured, modem not reset")
		return
	}
	if err := m.config.Power.PowerCycle(); err != nil {
		m.logger.Warn("Modem power cycle failed", "error", err)
	}
}

func (m *Machine) snapshot() Status {
	return Status{
		State:        m.state,
		Indicator:    m.indicator,
		Registration: m.registration.String(),
		Link:         m.link,
		Carrier:      m.carrier,
		ICCID:        m.iccid,
		Owner:        m.owner,
		Signal:       m.signal,
		Clock:        m.clock,
		Resets:       m.resets,
		HardResets:   m.hardResets,
		CopsRetries:  m.copsRetries,
		NetPauses:    m.netPauses,
	}
}

func (m *Machine) publish() {
	st := m.snapshot()
	m.mu.Lock()
	m.status = st
	m.mu.Unlock()
}
