package modem

import (
	"strings"

	"i4.energy/across/vmu/at"
	"i4.energy/across/vmu/notify"
)

func (m *Machine) enterReady() {
	m.unreadyResets = 0
	m.copsRetries = 0
	m.netWatchdog = 0
	m.endTransaction()
	m.link = false
	m.linkTimer = 0
	if m.config.APN == "" {
		// SMS only: there is no link on which an error could be reported.
		m.indicator.Error = ErrorNone
		return
	}
	m.linkTimer = linkTimeoutTicks
}

// dropLink forgets the TCP link and any transaction on it.
func (m *Machine) dropLink() {
	m.link = false
	m.linkTimer = 0
	m.endTransaction()
}

func (m *Machine) linkUp() {
	if m.link {
		return
	}
	m.link = true
	m.linkTimer = 0
	m.logger.Info("Server link up", "server", m.config.Server)

	if e := m.indicator.Error; e != ErrorNone {
		retries := m.hardResets + m.netPauses
		m.queue.RequestError(int(e), retries)
		m.logger.Info("Reporting recovered error", "error", e, "retries", retries)
		m.indicator.Error = ErrorNone
	}
}

func (m *Machine) readyLine(line string) {
	switch {
	case line == at.ConnectOK || line == at.AlreadyConnect:
		m.linkUp()

	case line == at.Closed || line == at.SendFail || line == at.ConnectFail:
		if m.config.APN != "" {
			m.logger.Warn("Server link failed", "reply", line)
			m.EnterState(StateNetInitPauseC)
		}

	case line == at.UrcPDPDeact:
		m.logger.Warn("PDP context deactivated")
		m.EnterState(StateNetInitPause)

	case line == at.UrcReady:
		m.logger.Warn("Modem restarted unexpectedly")
		m.EnterState(StateStart)

	case line == at.SendOK, strings.HasPrefix(line, at.DataAccept), strings.HasPrefix(line, "+CMGS:"):
		m.endTransaction()

	case strings.HasPrefix(line, at.State):
		m.ipStateLine(line)

	case strings.HasPrefix(line, at.UrcUSSD):
		if u, ok := at.ParseUSSD(line); ok {
			m.config.Dispatcher.OnUSSDReply(u.Decode(m.config.USSDPacked))
		}

	case strings.HasPrefix(line, at.UrcCallerID):
		number, _ := at.ParseCallerID(line)
		m.logger.Info("Rejecting voice call", "caller", number)
		m.send(at.CmdHangup)

	case at.IsError(line):
		if m.inFlight > 0 {
			m.logger.Warn("Outbound message rejected", "kind", m.inFlightKind, "reply", line)
			m.endTransaction()
		}

	default:
		if reg, ok := at.ParseRegistration(line); ok {
			m.watchRegistration(reg)
		}
	}
}

// watchRegistration arms the network watchdog while registration is lost.
func (m *Machine) watchRegistration(reg at.Registration) {
	if reg.Registered() {
		m.netWatchdog = 0
		return
	}
	if m.netWatchdog == 0 {
		m.logger.Warn("Network registration lost", "registration", reg)
		m.netWatchdog = netWatchdogTicks
	}
}

func (m *Machine) ipStateLine(line string) {
	state, _ := at.ParseIPState(line)
	if m.config.APN == "" {
		return
	}
	switch state {
	case "IP INITIAL", "PDP DEACT":
		m.logger.Warn("GPRS context lost", "state", state)
		m.EnterState(StateNetInitPause)
	case "IP STATUS", "TCP CLOSING", "TCP CLOSED":
		m.logger.Warn("Server link lost", "state", state)
		m.EnterState(StateNetInitPauseC)
	}
}

func (m *Machine) readyTick() {
	if m.netWatchdog > 0 {
		m.netWatchdog--
		if m.netWatchdog == 0 {
			m.logger.Warn("Network registration not recovered, reselecting carrier")
			m.EnterState(StateCops)
			return
		}
	}

	if m.linkTimer > 0 {
		m.linkTimer--
		if m.linkTimer == 0 {
			m.logger.Warn("Server link not established", "server", m.config.Server)
			m.EnterState(StateNetInitPauseC)
			return
		}
	}

	if m.inFlight > 0 {
		m.inFlight--
		if m.inFlight > 0 {
			return
		}
		m.logger.Warn("Outbound message timed out", "kind", m.inFlightKind)
		m.endTransaction()
		if m.inFlightKind == MessageServer {
			m.EnterState(StateNetInitPauseC)
		}
		return
	}

	m.drainOne()
}

// drainOne sends at most one pending notification or outbox message.
func (m *Machine) drainOne() {
	if m.link {
		if n, ok := m.queue.DrainOne(); ok {
			if line := m.compose(n); line != "" {
				m.transmit(Message{Kind: MessageServer, Text: line})
				return
			}
		}
	}
	if msg, ok := m.outbox.pop(m.link); ok {
		m.transmit(msg)
	}
}

func (m *Machine) compose(n notify.Notification) string {
	if m.config.Composer == nil {
		m.logger.Debug("Notification dropped, no composer", "kind", n.Kind)
		return ""
	}
	return m.config.Composer.Compose(n, m.snapshot())
}

func (m *Machine) transmit(msg Message) {
	m.logger.Debug("Sending message", "kind", msg.Kind, "to", msg.To, "length", len(msg.Text))
	switch msg.Kind {
	case MessageServer:
		// +CIPSPRT=0 suppresses the "> " prompt, so the payload follows the
		// command after a short pause.
		m.begin(msg.Kind, msg.Text+at.CRLF)
		m.send(at.CmdIPSend)
		m.payloadDelay = payloadDelayTenths
	case MessageSMS:
		m.begin(msg.Kind, msg.Text)
		m.reader.ExpectPrompt()
		m.send(at.SendSMS(msg.To))
	case MessageUSSD:
		m.send(at.RequestUSSD(msg.Text))
	}
}

func (m *Machine) begin(kind MessageKind, payload string) {
	m.payload = []byte(payload + at.CtrlZ)
	m.inFlight = inFlightTicks
	m.inFlightKind = kind
}

// endTransaction forgets the message in flight.
func (m *Machine) endTransaction() {
	m.inFlight = 0
	m.payload = nil
	m.payloadDelay = 0
	m.reader.Disarm()
}

// flushPayload writes the payload of the message in flight, once.
func (m *Machine) flushPayload() {
	if m.payload == nil {
		return
	}
	p := m.payload
	m.payload = nil
	m.write(p)
}
