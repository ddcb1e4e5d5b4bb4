package modem

//go:generate go tool mockgen -source=dispatch.go -destination=mock_dispatch.go -package=modem

import "i4.energy/across/vmu/notify"

// Dispatcher receives completed payload frames. Calls are made from the
// goroutine running the Machine and must not block.
type Dispatcher interface {
	// OnSMS is called with the sender and body of an incoming SMS.
	OnSMS(caller, body string)
	// OnBinaryLine is called for every line of a TCP payload block.
	OnBinaryLine(body string)
	// OnUSSDReply is called with the decoded text of a +CUSD reply.
	OnUSSDReply(body string)
}

// DiagHandler answers lines typed on the serial console in diagnostic mode.
type DiagHandler interface {
	HandleDiag(line string) string
}

// Composer renders a drained notification into one server message line.
// An empty result drops the notification.
type Composer interface {
	Compose(n notify.Notification, st Status) string
}

type nopDispatcher struct{}

func (nopDispatcher) OnSMS(string, string) {}
func (nopDispatcher) OnBinaryLine(string) {}
func (nopDispatcher) OnUSSDReply(string) {}
