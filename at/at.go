package at

const (
	// Terminal Control
	CR     = "\r"
	CRLF   = "\r\n"
	Prompt = "> "
	CtrlZ  = "\x1a"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	ShutOK     = "SHUT OK"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// Socket results
	ConnectOK      = "CONNECT OK"
	AlreadyConnect = "ALREADY CONNECT"
	ConnectFail    = "CONNECT FAIL"
	SendOK         = "SEND OK"
	SendFail       = "SEND FAIL"
	DataAccept     = "DATA ACCEPT"
	Closed         = "CLOSED"
	State          = "STATE:"

	// URCs (Unsolicited Result Codes)
	UrcIPD            = "+IPD,"
	UrcSMS            = "+CMT:"
	UrcNewMsg         = "+CMTI:"
	UrcRegistration   = "+CREG"
	UrcCallerID       = "+CLIP"
	UrcClock          = "+CCLK"
	UrcSignalStrength = "+CSQ:"
	UrcPDPDeact       = "+PDP: DEACT"
	UrcReady          = "RDY"
	UrcFunctionality  = "+CFUN:"
	UrcUSSD           = "+CUSD:"
	UrcNetworkTime    = "*PSUTTZ:"
	UrcCall           = "RING"
)

// Commands sent to the modem. The strings are part of the wire contract with
// the modem's PDP/GPRS/TCP stack and must not be altered.
const (
	CmdWake      = "AT\r"
	CmdWakeGPS   = "AT+CGPSPWR=1\r"
	CmdSIMCheck  = "AT+CSMINS?\r"
	CmdSIMPIN    = "AT+CCID;+CPBF=\"O-\";+CPIN?\r"
	CmdInit      = "AT+IPR?;+CREG=1;+CLIP=1;+CMGF=1;+CNMI=2,2;+CSDH=1;+CIPSPRT=0;+CIPQSEND=1;+CLTS=1;E0\r"
	CmdCops      = "AT+COPS=0,1;+COPS?\r"
	CmdIICR      = "AT+CIICR\r"
	CmdIPHead    = "AT+CIPHEAD=1\r"
	CmdIFSR      = "AT+CIFSR\r"
	CmdHangup    = "ATH\r"
	CmdIPShut    = "AT+CIPSHUT\r"
	CmdIPClose   = "AT+CIPCLOSE\r"
	CmdIPSend    = "AT+CIPSEND\r"
	CmdStatus    = "AT+CREG?;+CIPSTATUS;+CCLK?;+CSQ\r"
	CmdRegStatus = "AT+CREG?\r"

	// ServerPort is both the local and the remote TCP port of the server link.
	ServerPort = "6867"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CSQ: ...)
	TypePrompt                     // Data input prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	case TypePrompt:
		return "prompt"
	}
	return "unknown"
}
