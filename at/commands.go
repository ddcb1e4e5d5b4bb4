package at

import "strings"

// CopsLocked selects a fixed carrier instead of automatic selection.
func CopsLocked(carrier string) string {
	return "AT+COPS=1,1," + quote(carrier) + ";+COPS?\r"
}

// DefinePDP sets up PDP context 1 for the access point.
func DefinePDP(apn string) string {
	return "AT+CGDCONT=1,\"IP\"," + quote(apn) + "\r"
}

// StartTask sets the APN and credentials of the GPRS task.
func StartTask(apn, user, pass string) string {
	return "AT+CSTT=" + strings.Join([]string{quote(apn), quote(user), quote(pass)}, ",") + "\r"
}

// ConfigureDNS sets the primary DNS server. With no server it degrades to a
// plain wake command so the bring-up sequence keeps its step count.
func ConfigureDNS(dns string) string {
	if dns == "" {
		return CmdWake
	}
	return "AT+CDNSCFG=" + quote(dns) + "\r"
}

// LocalPort binds the local TCP port of the server link.
func LocalPort() string {
	return "AT+CLPORT=\"TCP\",\"" + ServerPort + "\"\r"
}

// StartTCP opens the server link.
func StartTCP(server string) string {
	return "AT+CIPSTART=\"TCP\"," + quote(server) + "," + quote(ServerPort) + "\r"
}

// SendSMS starts a text mode SMS to the recipient; the body follows the prompt.
func SendSMS(recipient string) string {
	return "AT+CMGS=" + quote(recipient) + "\r"
}

// RequestUSSD sends a USSD service code, e.g. "*100#".
func RequestUSSD(code string) string {
	return "AT+CUSD=1," + quote(code) + "\r"
}

// quote wraps s in double quotes without escaping; the modem takes the
// parameter text literally.
func quote(s string) string {
	return `"` + s + `"`
}
