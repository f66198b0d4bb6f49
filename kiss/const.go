package kiss

// Framing bytes.
const (
	FEND  = 0xc0
	FESC  = 0xdb
	TFEND = 0xdc
	TFESC = 0xdd
)

// MaxFrame bounds the decoded size of one KISS frame, command byte included.
const MaxFrame = 2048

// Command is the low nibble of the KISS command byte.
type Command uint8

// KISS commands.  All but CmdData and CmdReturn configure the TNC.
const (
	CmdData        Command = 0x00
	CmdTxDelay     Command = 0x01
	CmdPersist     Command = 0x02
	CmdSlotTime    Command = 0x03
	CmdTxTail      Command = 0x04
	CmdFullDuplex  Command = 0x05
	CmdSetHardware Command = 0x06
	CmdReturn      Command = 0xff
)

// String provides a human-readable representation of Command.
func (c Command) String() string {
	switch c {
	case CmdData:
		return "data"
	case CmdTxDelay:
		return "txdelay"
	case CmdPersist:
		return "persist"
	case CmdSlotTime:
		return "slottime"
	case CmdTxTail:
		return "txtail"
	case CmdFullDuplex:
		return "fullduplex"
	case CmdSetHardware:
		return "hardware"
	case CmdReturn:
		return "return"
	}
	return "???"
}

// IsParam reports whether c is one of the TNC configuration commands.
func (c Command) IsParam() bool {
	return c >= CmdTxDelay && c <= CmdSetHardware
}

// TypeByte combines a port number and a command into the first byte of
// a KISS frame.
func TypeByte(port int, c Command) byte {
	if c == CmdReturn {
		return byte(CmdReturn)
	}
	return byte(port&0x0f)<<4 | byte(c)&0x0f
}
