// Package notify holds the set of outbound events waiting for the server link.
package notify

import (
	"fmt"
	"sync"
)

// Kind is a notification type. Lower values drain first.
type Kind int

const (
	KindErrorCode Kind = iota
	KindAlarm
	KindLow12V
	KindTrunk
	KindCharge
	KindEnvironment
	KindStatus

	kindCount
)

// ErrorSuppression is the number of seconds an error code stays suppressed
// after it was requested.
const ErrorSuppression = 60

var kindNames = [kindCount]string{
	KindErrorCode:   "error",
	KindAlarm:       "alarm",
	KindLow12V:      "12v",
	KindTrunk:       "trunk",
	KindCharge:      "charge",
	KindEnvironment: "environment",
	KindStatus:      "status",
}

func (k Kind) String() string {
	if k >= 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a name as returned by String back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Notification is a drained entry. Code and Data are only set for
// KindErrorCode.
type Notification struct {
	Kind Kind
	Code int
	Data int
}

// Queue is a set of pending notification kinds. Requesting a kind that is
// already pending has no effect. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending [kindCount]bool

	code     int
	data     int
	suppress int
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Request marks kind as pending.
func (q *Queue) Request(kind Kind) {
	if kind < 0 || kind >= kindCount {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[kind] = true
}

// RequestError queues an error code notification. The same code and data
// requested again within ErrorSuppression seconds is ignored; RequestError
// reports whether the request was accepted.
func (q *Queue) RequestError(code, data int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.suppress > 0 && code == q.code && data == q.data {
		return false
	}
	q.code, q.data = code, data
	q.suppress = ErrorSuppression
	q.pending[KindErrorCode] = true
	return true
}

// Tick advances the suppression window by one second.
func (q *Queue) Tick() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.suppress > 0 {
		q.suppress--
	}
}

// DrainOne removes and returns the highest priority pending notification.
func (q *Queue) DrainOne() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k := range q.pending {
		if !q.pending[k] {
			continue
		}
		q.pending[k] = false
		n := Notification{Kind: Kind(k)}
		if n.Kind == KindErrorCode {
			n.Code, n.Data = q.code, q.data
		}
		return n, true
	}
	return Notification{}, false
}

// Pending lists the pending kinds in drain order.
func (q *Queue) Pending() []Kind {
	q.mu.Lock()
	defer q.mu.Unlock()
	var kinds []Kind
	for k, p := range q.pending {
		if p {
			kinds = append(kinds, Kind(k))
		}
	}
	return kinds
}
