package modem

import (
	"i4.energy/across/vmu/at"
)

// stepClose waits for the reply to AT+CIPCLOSE in DoNetInitC.
const stepClose = stepConnecting + 1

// enterNetInit starts the full GPRS and socket bring-up. Without an APN
// there is nothing to bring up and the machine goes straight to Ready.
func (m *Machine) enterNetInit() {
	if m.config.APN == "" {
		m.EnterState(StateReady)
		return
	}
	m.dropLink()
	m.advance(stepDefinePDP, at.DefinePDP(m.config.APN))
}

// enterNetInitReconnect only reopens the TCP socket on the existing GPRS
// context.
func (m *Machine) enterNetInitReconnect() {
	if m.config.APN == "" {
		m.EnterState(StateReady)
		return
	}
	m.dropLink()
	m.advance(stepClose, at.CmdIPClose)
}

func (m *Machine) advance(step netStep, cmd string) {
	m.step = step
	m.send(cmd)
}

func (m *Machine) netInitLine(line string) {
	if reg, ok := at.ParseRegistration(line); ok && reg == at.RegNotRegistered {
		m.logger.Warn("Registration lost during GPRS bring-up")
		m.EnterState(StateSoftReset)
		return
	}
	if line == at.UrcPDPDeact {
		m.logger.Warn("PDP context deactivated during GPRS bring-up")
		m.EnterState(StateSoftReset)
		return
	}

	ok := line == at.OK || line == at.ShutOK
	failed := at.IsError(line)

	switch m.step {
	case stepClose:
		if ok || failed || line == "CLOSE OK" {
			m.advance(stepLocalPort, at.LocalPort())
		}
	case stepDefinePDP:
		if ok {
			m.advance(stepStartTask, at.StartTask(m.config.APN, m.config.APNUser, m.config.APNPass))
		}
	case stepStartTask:
		switch {
		case ok:
			m.advance(stepBringUp, at.CmdIICR)
		case failed:
			m.logger.Warn("GPRS task rejected", "reply", line)
			m.EnterState(StateNetInitPause)
		}
	case stepBringUp:
		switch {
		case ok:
			m.advance(stepIPHead, at.CmdIPHead)
		case failed:
			m.logger.Warn("GPRS bring-up rejected", "reply", line)
			m.EnterState(StateNetInitPause)
		}
	case stepIPHead:
		if ok {
			m.advance(stepLocalIP, at.CmdIFSR)
		}
	case stepLocalIP:
		// +CIFSR answers with the bare local address instead of OK. Other
		// output arriving meanwhile (DST:, SMS Ready, ...) is not an answer.
		switch {
		case failed:
			m.logger.Error("GPRS stack wedged, no local address", "reply", line)
			m.setError(ErrorWedged)
			m.EnterState(StateHardReset)
		case at.IsIPAddress(line):
			m.logger.Info("GPRS attached", "address", line)
			m.advance(stepDNS, at.ConfigureDNS(m.config.DNS))
		}
	case stepDNS:
		if ok {
			m.advance(stepLocalPort, at.LocalPort())
		}
	case stepLocalPort:
		if ok {
			m.advance(stepStartTCP, at.StartTCP(m.config.Server))
		}
	case stepStartTCP:
		if ok {
			m.step = stepConnecting
			m.EnterState(StateReady)
		}
	}
}
