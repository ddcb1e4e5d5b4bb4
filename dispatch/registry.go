// Package dispatch runs the text commands that reach the unit by SMS, over
// the server link, or on the diagnostic console.
//
// A command line is a command word followed by optional arguments. The word
// is matched case-insensitively against the registered handlers; the reply
// travels back the way the command came in.
package dispatch

//go:generate go tool mockgen -source=registry.go -destination=mock_registry.go -package=dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/warthog618/sms/encoding/gsm7"
	"i4.energy/across/vmu/modem"
)

const (
	// MaxSMSLength is the longest reply sent in a single text mode SMS.
	MaxSMSLength = 160
	// stopTimeout bounds how long RESTART waits to queue the stop request.
	stopTimeout = time.Second
)

// Source tells where a command came from.
type Source int

const (
	SourceSMS Source = iota
	SourceServer
	SourceDiag
)

func (s Source) String() string {
	switch s {
	case SourceSMS:
		return "sms"
	case SourceServer:
		return "server"
	case SourceDiag:
		return "diag"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Request is one parsed command line.
type Request struct {
	Source  Source
	Caller  string
	Command string
	Args    string
}

// Handler runs a command and returns the reply text. An empty reply sends
// nothing back.
type Handler func(req Request) string

// Controller is the part of the modem engine commands act on.
type Controller interface {
	Status() modem.Status
	Stop(ctx context.Context) error
}

// Registry maps command words to handlers. It implements modem.Dispatcher
// and modem.DiagHandler; replies are queued on the outbox.
type Registry struct {
	outbox *modem.Outbox
	logger *slog.Logger

	mu         sync.Mutex
	handlers   map[string]Handler
	owner      string
	controller Controller
	ussd       *Request
}

// NewRegistry returns a registry with the built-in STAT, USSD, RESTART and
// HELP commands.
func NewRegistry(outbox *modem.Outbox, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		outbox:   outbox,
		logger:   logger.With("component", "dispatch"),
		handlers: make(map[string]Handler),
	}
	r.Register("STAT", r.stat)
	r.Register("USSD", r.requestUSSD)
	r.Register("RESTART", r.restart)
	r.Register("HELP", r.help)
	return r
}

// Register adds or replaces the handler for a command word.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToUpper(name)] = h
}

// SetOwner restricts SMS commands to one phone number. An empty number
// accepts SMS commands from anyone.
func (r *Registry) SetOwner(number string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = number
}

// Bind attaches the engine the built-in commands report on and control.
func (r *Registry) Bind(c Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controller = c
}

// Commands returns the registered command words in sorted order.
func (r *Registry) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.handlers))
}

// OnSMS implements modem.Dispatcher.
func (r *Registry) OnSMS(caller, body string) {
	owner := r.ownerNumber()
	if owner == "" {
		if st, ok := r.status(); ok {
			owner = st.Owner
		}
	}
	if owner != "" && caller != owner {
		r.logger.Warn("Ignoring SMS from unknown sender", "caller", caller)
		return
	}

	reply := r.run(Request{Source: SourceSMS, Caller: caller}, body)
	if reply != "" {
		r.push(modem.Message{Kind: modem.MessageSMS, To: caller, Text: smsText(reply)})
	}
}

// OnBinaryLine implements modem.Dispatcher for MSG protocol lines. Commands
// arrive as "MP-0 C<command> <args>" and are answered with
// "MP-0 c<COMMAND>,<reply>" with the reply folded onto one line.
func (r *Registry) OnBinaryLine(body string) {
	line, ok := strings.CutPrefix(body, MsgPrefix+"C")
	if !ok {
		r.logger.Debug("Ignoring server line", "line", body)
		return
	}
	req := Request{Source: SourceServer}
	reply := r.run(req, line)
	if reply != "" {
		cmd, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		r.push(modem.Message{
			Kind: modem.MessageServer,
			Text: MsgPrefix + "c" + strings.ToUpper(cmd) + "," + strings.ReplaceAll(reply, "\n", ";"),
		})
	}
}

// OnUSSDReply implements modem.Dispatcher. The reply is relayed to whoever
// sent the pending USSD command.
func (r *Registry) OnUSSDReply(body string) {
	r.mu.Lock()
	req := r.ussd
	r.ussd = nil
	r.mu.Unlock()

	if req == nil {
		r.logger.Info("Unsolicited USSD reply", "reply", body)
		return
	}
	switch req.Source {
	case SourceSMS:
		r.push(modem.Message{Kind: modem.MessageSMS, To: req.Caller, Text: smsText(body)})
	case SourceServer:
		r.push(modem.Message{Kind: modem.MessageServer, Text: MsgPrefix + "cUSSD," + body})
	default:
		r.logger.Info("USSD reply", "reply", body)
	}
}

// HandleDiag implements modem.DiagHandler.
func (r *Registry) HandleDiag(line string) string {
	return r.run(Request{Source: SourceDiag}, line)
}

func (r *Registry) run(req Request, line string) string {
	word, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if word == "" {
		return ""
	}
	req.Command = strings.ToUpper(word)
	req.Args = strings.TrimSpace(args)

	r.mu.Lock()
	h, ok := r.handlers[req.Command]
	r.mu.Unlock()
	if !ok {
		r.logger.Info("Unknown command", "command", req.Command, "source", req.Source)
		return "Unknown command: " + req.Command
	}

	r.logger.Info("Running command", "command", req.Command, "source", req.Source, "caller", req.Caller)
	return h(req)
}

func (r *Registry) push(msg modem.Message) {
	if !r.outbox.Push(msg) {
		r.logger.Warn("Outbox full, reply dropped", "kind", msg.Kind, "to", msg.To)
	}
}

func (r *Registry) ownerNumber() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

func (r *Registry) status() (modem.Status, bool) {
	r.mu.Lock()
	c := r.controller
	r.mu.Unlock()
	if c == nil {
		return modem.Status{}, false
	}
	return c.Status(), true
}

func (r *Registry) stat(Request) string {
	st, ok := r.status()
	if !ok {
		return "Not ready"
	}
	return FormatStatus(st)
}

func (r *Registry) requestUSSD(req Request) string {
	if req.Args == "" {
		return "Usage: USSD <code>"
	}
	if !r.outbox.Push(modem.Message{Kind: modem.MessageUSSD, Text: req.Args}) {
		return "Busy, try again"
	}
	r.mu.Lock()
	r.ussd = &req
	r.mu.Unlock()
	return ""
}

func (r *Registry) restart(Request) string {
	r.mu.Lock()
	c := r.controller
	r.mu.Unlock()
	if c == nil {
		return "Not ready"
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		r.logger.Warn("Restart request failed", "error", err)
		return "Restart failed"
	}
	return "Restarting"
}

func (r *Registry) help(Request) string {
	return strings.Join(r.Commands(), " ")
}

// smsText trims a reply to one SMS and replaces characters the GSM 7-bit
// alphabet cannot carry.
func smsText(s string) string {
	var b strings.Builder
	n := 0
	for _, c := range s {
		if n == MaxSMSLength {
			break
		}
		if _, err := gsm7.Encode([]byte(string(c))); err != nil {
			c = '?'
		}
		b.WriteRune(c)
		n++
	}
	return b.String()
}
