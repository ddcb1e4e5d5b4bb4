package dispatch

import (
	"fmt"
	"strings"
	"time"

	"i4.energy/across/vmu/modem"
	"i4.energy/across/vmu/notify"
)

// MsgPrefix starts every MSG protocol line.
const MsgPrefix = "MP-0 "

// Composer renders notifications as MSG protocol lines. It implements
// modem.Composer.
type Composer struct {
	// Environment and Vehicle supply the payload of the vehicle specific
	// notifications. Nil funcs send the bare notification code.
	Environment func() string
	Vehicle     func(kind notify.Kind) string
}

var kindCodes = map[notify.Kind]string{
	notify.KindAlarm:  "PAAlarm",
	notify.KindLow12V: "PA12V",
	notify.KindTrunk:  "PATrunk",
	notify.KindCharge: "PACharge",
}

// Compose implements modem.Composer.
func (c Composer) Compose(n notify.Notification, st modem.Status) string {
	switch n.Kind {
	case notify.KindErrorCode:
		return fmt.Sprintf("%sE%d,%d", MsgPrefix, n.Code, n.Data)
	case notify.KindStatus:
		return MsgPrefix + "S" + statusFields(st)
	case notify.KindEnvironment:
		line := MsgPrefix + "D"
		if c.Environment != nil {
			line += c.Environment()
		}
		return line
	}

	code, ok := kindCodes[n.Kind]
	if !ok {
		return ""
	}
	line := MsgPrefix + code
	if c.Vehicle != nil {
		if extra := c.Vehicle(n.Kind); extra != "" {
			line += "," + extra
		}
	}
	return line
}

func statusFields(st modem.Status) string {
	clock := ""
	if !st.Clock.IsZero() {
		clock = st.Clock.UTC().Format(time.RFC3339)
	}
	return strings.Join([]string{
		fmt.Sprint(st.Signal),
		st.Carrier,
		st.Registration,
		fmt.Sprint(st.Resets),
		fmt.Sprint(st.HardResets),
		clock,
	}, ",")
}

// FormatStatus renders a status summary for SMS and console replies.
func FormatStatus(st modem.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s", st.State)
	if st.Carrier != "" {
		fmt.Fprintf(&b, "\nCarrier: %s", st.Carrier)
	}
	fmt.Fprintf(&b, "\nSignal: %d", st.Signal)
	fmt.Fprintf(&b, "\nNetwork: %s", st.Registration)
	if st.Link {
		b.WriteString("\nServer: connected")
	}
	if st.Indicator.Error != modem.ErrorNone {
		fmt.Fprintf(&b, "\nError: %s", st.Indicator.Error)
	}
	fmt.Fprintf(&b, "\nResets: %d", st.Resets)
	return b.String()
}
