package at

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/warthog618/modem/info"
	"github.com/warthog618/sms/encoding/gsm7"
)

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, ShutOK, SendOK, SendFail, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	case UrcCall, UrcReady, Closed, ConnectOK, AlreadyConnect, ConnectFail, UrcPDPDeact:
		return TypeURC
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError),
		strings.HasPrefix(line, DataAccept):
		return TypeFinal
	case strings.HasPrefix(line, UrcNewMsg), strings.HasPrefix(line, UrcSMS),
		info.HasPrefix(line, UrcRegistration), info.HasPrefix(line, UrcCallerID),
		strings.HasPrefix(line, UrcFunctionality), strings.HasPrefix(line, UrcUSSD),
		strings.HasPrefix(line, UrcNetworkTime), strings.HasPrefix(line, UrcIPD),
		strings.HasPrefix(line, UrcSignalStrength), info.HasPrefix(line, UrcClock):
		return TypeURC
	default:
		return TypeData
	}
}

// IsError reports whether the line is a failed final result.
func IsError(line string) bool {
	return line == ERROR || strings.HasPrefix(line, CmeError) || strings.HasPrefix(line, CmsError)
}

// Registration mirrors the <stat> field of +CREG.
type Registration int

const (
	RegNotRegistered Registration = iota
	RegHome
	RegSearching
	RegDenied
	RegUnknown
	RegRoaming
)

// Registered reports whether the modem is attached to a home or roaming network.
func (r Registration) Registered() bool {
	return r == RegHome || r == RegRoaming
}

func (r Registration) String() string {
	switch r {
	case RegNotRegistered:
		return "unregistered"
	case RegHome:
		return "home"
	case RegSearching:
		return "searching"
	case RegDenied:
		return "denied"
	case RegRoaming:
		return "roaming"
	}
	return "unknown"
}

// ParseRegistration parses both the unsolicited "+CREG: <stat>" and the
// query reply "+CREG: <n>,<stat>".
func ParseRegistration(line string) (Registration, bool) {
	if !info.HasPrefix(line, UrcRegistration) {
		return RegUnknown, false
	}
	fields := strings.Split(info.TrimPrefix(line, UrcRegistration), ",")
	field := fields[0]
	if len(fields) > 1 {
		field = fields[1]
	}
	stat, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return RegUnknown, false
	}
	return Registration(stat), true
}

// ParseSignal returns the RSSI field of "+CSQ: <rssi>,<ber>".
func ParseSignal(line string) (int, bool) {
	if !info.HasPrefix(line, "+CSQ") {
		return 0, false
	}
	rssi, _, _ := strings.Cut(info.TrimPrefix(line, "+CSQ"), ",")
	n, err := strconv.Atoi(strings.TrimSpace(rssi))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseClock parses `+CCLK: "yy/MM/dd,hh:mm:ss±zz"` where zz counts quarter
// hours.
func ParseClock(line string) (time.Time, bool) {
	if !info.HasPrefix(line, UrcClock) {
		return time.Time{}, false
	}
	v := strings.Trim(info.TrimPrefix(line, UrcClock), `"`)
	if len(v) < 17 {
		return time.Time{}, false
	}
	offset := 0
	if len(v) > 17 {
		q, err := strconv.Atoi(v[17:])
		if err != nil {
			return time.Time{}, false
		}
		offset = q * 15 * 60
	}
	t, err := time.ParseInLocation("06/01/02,15:04:05", v[:17], time.FixedZone("", offset))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseOperator returns the carrier name of `+COPS: <mode>,<format>,"<oper>"`.
func ParseOperator(line string) (string, bool) {
	if !info.HasPrefix(line, "+COPS") {
		return "", false
	}
	fields := strings.Split(info.TrimPrefix(line, "+COPS"), ",")
	if len(fields) < 3 {
		return "", false
	}
	return strings.Trim(fields[2], `"`), true
}

// ParseSIMInserted reads the last field of "+CSMINS: <n>,<inserted>".
func ParseSIMInserted(line string) (inserted, ok bool) {
	if !info.HasPrefix(line, "+CSMINS") {
		return false, false
	}
	v := info.TrimPrefix(line, "+CSMINS")
	if i := strings.LastIndexByte(v, ','); i >= 0 {
		v = v[i+1:]
	}
	return strings.TrimSpace(v) != "0", true
}

// PINReady reports whether a "+CPIN: " reply says READY. Only the first
// letter of the status is significant.
func PINReady(line string) bool {
	return len(line) > 7 && line[7] == 'R'
}

// ParsePhonebook parses `+CPBF: <index>,"<number>",<type>,"<text>"`.
func ParsePhonebook(line string) (number, text string, ok bool) {
	if !info.HasPrefix(line, "+CPBF") {
		return "", "", false
	}
	fields := strings.Split(info.TrimPrefix(line, "+CPBF"), ",")
	if len(fields) < 4 {
		return "", "", false
	}
	return strings.Trim(fields[1], `"`), strings.Trim(fields[3], `"`), true
}

// ParseCallerID returns the number of `+CLIP: "<number>",<type>,...`.
func ParseCallerID(line string) (string, bool) {
	if !info.HasPrefix(line, UrcCallerID) {
		return "", false
	}
	number, _, _ := strings.Cut(info.TrimPrefix(line, UrcCallerID), ",")
	return strings.Trim(number, `"`), true
}

// ParseIPState returns the connection state of a "STATE: <state>" line.
func ParseIPState(line string) (string, bool) {
	if !strings.HasPrefix(line, State) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, State)), true
}

// IsICCID reports whether the line is a bare +CCID reply.
func IsICCID(line string) bool {
	if len(line) < 18 || len(line) > 22 {
		return false
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// IsIPAddress reports whether the line is a dotted IPv4 address, the only
// reply +CIFSR produces on success.
func IsIPAddress(line string) bool {
	parts := strings.Split(line, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// USSD is a parsed `+CUSD: <m>,"<str>",<dcs>` reply.
type USSD struct {
	Status int
	Text   string
	DCS    int
}

// ParseUSSD parses a +CUSD reply. The text may itself contain commas.
func ParseUSSD(line string) (USSD, bool) {
	if !info.HasPrefix(line, "+CUSD") {
		return USSD{}, false
	}
	v := info.TrimPrefix(line, "+CUSD")
	status, rest, _ := strings.Cut(v, ",")
	n, err := strconv.Atoi(strings.TrimSpace(status))
	if err != nil {
		return USSD{}, false
	}
	u := USSD{Status: n}
	first := strings.IndexByte(rest, '"')
	last := strings.LastIndexByte(rest, '"')
	if first < 0 || last <= first {
		return u, true
	}
	u.Text = rest[first+1 : last]
	if dcs, ok := strings.CutPrefix(rest[last+1:], ","); ok {
		u.DCS, _ = strconv.Atoi(strings.TrimSpace(dcs))
	}
	return u, true
}

// Decode returns the reply text. Modems that report USSD strings as packed
// GSM 7-bit hex are unpacked when packed is set; anything that fails to
// decode is returned as received.
func (u USSD) Decode(packed bool) string {
	if !packed || u.Text == "" {
		return u.Text
	}
	raw, err := hex.DecodeString(u.Text)
	if err != nil {
		return u.Text
	}
	text, err := gsm7.Decode(gsm7.Unpack7BitUSSD(raw, 0))
	if err != nil {
		return u.Text
	}
	return string(text)
}
