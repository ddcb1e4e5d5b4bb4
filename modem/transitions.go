package modem

import (
	"strings"

	"i4.energy/across/vmu/at"
)

// enter runs the entry actions of s.
func (m *Machine) enter(s State) {
	switch s {
	case StateStart:
		m.send(m.wakeCommand())

	case StateHardReset:
		m.hardResets++
		m.unreadyResets++
		m.copsRetries = 0
		m.netPauses = 0
		m.dropLink()
		m.reader.Reset()
		if m.unreadyResets >= persistentResets {
			m.indicator.Error = ErrorRegistration
		}
		m.logger.Error("Modem hard reset", "count", m.hardResets, "consecutive", m.unreadyResets)
		m.powerCycle()

	case StateSoftReset:
		m.EnterState(StateFirstRun)

	case StateHardStop:
		m.dropLink()
		m.send(at.CmdIPShut)

	case StateHardStop2:
		m.powerCycle()

	case StateStop:
		m.resets++
		m.resetPending = true
		m.logger.Error("Device reset", "resets", m.resets)

	case StateDoInit:
		m.simInserted = false
		m.send(at.CmdSIMCheck)

	case StateDoInit2:
		m.pinReady = false
		m.send(at.CmdSIMPIN)

	case StateDoInit3:
		m.send(at.CmdInit)

	case StateCops:
		m.send(m.copsCommand())

	case StateCopsWait:
		m.send(at.CmdRegStatus)

	case StateCopsWaitDone:
		m.copsRetries++
		if m.copsRetries > maxCopsRetries {
			m.logger.Error("Carrier selection failed", "retries", m.copsRetries-1)
			m.setError(ErrorRegistration)
			m.EnterState(StateHardReset)
			return
		}
		m.EnterState(StateCops)

	case StateDoNetInit:
		m.enterNetInit()

	case StateDoNetInitC:
		m.enterNetInitReconnect()

	case StateNetInitPause:
		m.netPauses++
		m.dropLink()
		if m.netPauses > maxNetPauses {
			m.logger.Error("GPRS bring-up failed", "pauses", m.netPauses-1)
			m.setError(ErrorGPRS)
			m.EnterState(StateHardReset)
			return
		}
		m.send(at.CmdIPShut)

	case StateNetInitPauseC:
		m.dropLink()

	case StateReady:
		m.enterReady()
	}
}

func (m *Machine) wakeCommand() string {
	if m.config.GPS {
		return at.CmdWakeGPS
	}
	return at.CmdWake
}

func (m *Machine) copsCommand() string {
	if m.config.Carrier != "" {
		return at.CopsLocked(m.config.Carrier)
	}
	return at.CmdCops
}

// stateTick runs once per second while no timeout fired.
func (m *Machine) stateTick() {
	switch m.state {
	case StateStart:
		m.send(m.wakeCommand())
	case StateDoInit:
		if m.stateTicks%initRetryInterval == 0 {
			m.send(at.CmdSIMCheck)
		}
	case StateDoInit2:
		if m.stateTicks%initRetryInterval == 0 {
			m.send(at.CmdSIMPIN)
		}
	case StateDoInit3:
		if m.stateTicks%initRetryInterval == 0 {
			m.send(at.CmdInit)
		}
	case StateCopsWait:
		if m.stateTicks%copsPollInterval == 0 {
			m.send(at.CmdRegStatus)
		}
	case StateReady:
		m.readyTick()
	}
}

// capture records facts reported by the modem regardless of state.
func (m *Machine) capture(line string) {
	if reg, ok := at.ParseRegistration(line); ok {
		m.registration = reg
		return
	}
	if rssi, ok := at.ParseSignal(line); ok {
		m.signal = rssi
		return
	}
	if ts, ok := at.ParseClock(line); ok {
		m.clock = ts
		return
	}
	if name, ok := at.ParseOperator(line); ok {
		m.carrier = name
	}
}

func (m *Machine) onLine(line string) {
	if line == "" {
		return
	}
	m.logger.Debug("Modem line", "line", line, "type", at.Classify(line), "state", m.state)
	m.capture(line)

	switch m.state {
	case StateFirstRun:
		if strings.EqualFold(strings.TrimSpace(line), "SETUP") {
			m.EnterState(StateDiagMode)
		}

	case StateDiagMode:
		m.diagLine(line)

	case StateStart:
		if line == at.OK {
			m.EnterState(StateDoInit)
		}

	case StateDoInit:
		m.simCheckLine(line)

	case StateDoInit2:
		m.simPINLine(line)

	case StateDoInit3:
		if line == at.OK {
			m.clearError(ErrorSIMLocked)
			m.EnterState(StateCops)
		}

	case StateCops:
		switch {
		case line == at.OK:
			m.EnterState(StateCopsSettle)
		case at.IsError(line):
			m.logger.Warn("Carrier selection rejected", "reply", line, "retries", m.copsRetries)
			m.EnterState(StateCopsWait)
		}

	case StateCopsWait:
		if reg, ok := at.ParseRegistration(line); ok && reg.Registered() {
			m.EnterState(StateCopsSettle)
		}

	case StateDoNetInit, StateDoNetInitC:
		m.netInitLine(line)

	case StateReady:
		m.readyLine(line)
	}
}

func (m *Machine) simCheckLine(line string) {
	if inserted, ok := at.ParseSIMInserted(line); ok {
		m.simInserted = inserted
		return
	}
	if line != at.OK {
		return
	}
	if !m.simInserted {
		m.logger.Warn("No SIM card inserted")
		m.setError(ErrorNoSIM)
		return
	}
	m.clearError(ErrorNoSIM)
	m.EnterState(StateDoInit2)
}

func (m *Machine) simPINLine(line string) {
	switch {
	case at.IsICCID(line):
		m.iccid = line
	case strings.HasPrefix(line, "+CPBF:"):
		if number, text, ok := at.ParsePhonebook(line); ok && strings.HasPrefix(text, "O-") {
			m.owner = number
		}
	case strings.HasPrefix(line, "+CPIN:"):
		m.pinReady = at.PINReady(line)
		if !m.pinReady {
			m.logger.Warn("SIM card locked", "reply", line)
			m.setError(ErrorSIMLocked)
		}
	case line == at.OK:
		if m.pinReady {
			m.EnterState(StateDoInit3)
		}
	}
}

func (m *Machine) diagLine(line string) {
	if strings.EqualFold(strings.TrimSpace(line), "RESET") {
		m.EnterState(StateStop)
		return
	}
	if m.config.Diag == nil {
		return
	}
	if reply := m.config.Diag.HandleDiag(line); reply != "" {
		m.send(reply + at.CRLF)
	}
}
