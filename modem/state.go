package modem

import "fmt"

// State is the modem bring-up state.
type State int

const (
	StateFirstRun State = iota
	StateStart
	StateHardReset
	StateSoftReset
	StateHardStop
	StateHardStop2
	StateStop
	StateDoInit
	StateDoInit2
	StateDoInit3
	StateCops
	StateCopsSettle
	StateCopsWait
	StateCopsWaitDone
	StateDoNetInit
	StateDoNetInitC
	StateNetInitPause
	StateNetInitPauseC
	StateReady
	StateDiagMode
)

var stateNames = map[State]string{
	StateFirstRun:      "FirstRun",
	StateStart:         "Start",
	StateHardReset:     "HardReset",
	StateSoftReset:     "SoftReset",
	StateHardStop:      "HardStop",
	StateHardStop2:     "HardStop2",
	StateStop:          "Stop",
	StateDoInit:        "DoInit",
	StateDoInit2:       "DoInit2",
	StateDoInit3:       "DoInit3",
	StateCops:          "Cops",
	StateCopsSettle:    "CopsSettle",
	StateCopsWait:      "CopsWait",
	StateCopsWaitDone:  "CopsWaitDone",
	StateDoNetInit:     "DoNetInit",
	StateDoNetInitC:    "DoNetInitC",
	StateNetInitPause:  "NetInitPause",
	StateNetInitPauseC: "NetInitPauseC",
	StateReady:         "Ready",
	StateDiagMode:      "DiagMode",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON status output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// timeout is a pending automatic transition.
type timeout struct {
	next  State
	ticks int
}

// stateTimeouts lists the states that leave on their own after a number of
// one second ticks. States not listed have no timeout.
var stateTimeouts = map[State]timeout{
	StateFirstRun:      {next: StateStart, ticks: 10},
	StateStart:         {next: StateHardReset, ticks: 20},
	StateHardReset:     {next: StateSoftReset, ticks: 2},
	StateHardStop:      {next: StateHardStop2, ticks: 10},
	StateHardStop2:     {next: StateStop, ticks: 2},
	StateDoInit:        {next: StateHardReset, ticks: 95},
	StateDoInit2:       {next: StateHardReset, ticks: 95},
	StateDoInit3:       {next: StateHardReset, ticks: 35},
	StateCops:          {next: StateHardReset, ticks: 240},
	StateCopsSettle:    {next: StateDoNetInit, ticks: 10},
	StateCopsWait:      {next: StateCopsWaitDone, ticks: 300},
	StateDoNetInit:     {next: StateHardReset, ticks: 60},
	StateDoNetInitC:    {next: StateHardReset, ticks: 60},
	StateNetInitPause:  {next: StateDoNetInit, ticks: 10},
	StateNetInitPauseC: {next: StateDoNetInitC, ticks: 5},
}

// netStep is the position in the GPRS and socket bring-up sequence. Each
// step names the command whose reply is awaited.
type netStep int

const (
	stepDefinePDP netStep = iota
	stepStartTask
	stepBringUp
	stepIPHead
	stepLocalIP
	stepDNS
	stepLocalPort
	stepStartTCP
	stepConnecting
)

// Phase is the high level progress shown on the status LED.
type Phase int

const (
	PhaseOff Phase = iota
	PhaseWakeup
	PhaseInitSIM1
	PhaseInitSIM2
	PhaseInitSIM3
	PhaseCops
	PhaseNetInit
	PhaseReady
)

var phaseNames = [...]string{"off", "wakeup", "init-sim1", "init-sim2", "init-sim3", "cops", "netinit", "ready"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ErrorCode is the most recent unresolved error class shown on the LED. Its
// numeric value is sent to the server as an error code notification.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	ErrorNoSIM
	ErrorSIMLocked
	ErrorRegistration
	ErrorGPRS
	ErrorWedged
	ErrorSilence
)

var errorNames = [...]string{"none", "no-sim", "sim-locked", "registration", "gprs", "wedged", "silence"}

func (e ErrorCode) String() string {
	if e >= 0 && int(e) < len(errorNames) {
		return errorNames[e]
	}
	return fmt.Sprintf("error(%d)", int(e))
}

func (e ErrorCode) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Indicator is the status LED output.
type Indicator struct {
	Phase Phase     `json:"phase"`
	Error ErrorCode `json:"error"`
}

func phaseOf(s State) Phase {
	switch s {
	case StateStart:
		return PhaseWakeup
	case StateDoInit:
		return PhaseInitSIM1
	case StateDoInit2:
		return PhaseInitSIM2
	case StateDoInit3:
		return PhaseInitSIM3
	case StateCops, StateCopsSettle, StateCopsWait, StateCopsWaitDone:
		return PhaseCops
	case StateDoNetInit, StateDoNetInitC, StateNetInitPause, StateNetInitPauseC:
		return PhaseNetInit
	case StateReady:
		return PhaseReady
	}
	return PhaseOff
}
