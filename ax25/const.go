package ax25

const (
	// AddrLen is the length of one address group on the wire.
	AddrLen = 7
	// MaxDigis is the largest number of digipeaters an address field may carry.
	MaxDigis = 8
	// MinFrameLen is the smallest frame that can carry a destination,
	// a source and a control byte.
	MinFrameLen = 2*AddrLen + 1
	// MaxFrame bounds every frame buffer, FCS included.
	MaxFrame = 2048
	// FCSLen is the length of the frame check sequence.
	FCSLen = 2
)

// Control and protocol identifier values.
const (
	ControlUI   = 0x03
	PIDNoLayer3 = 0xf0
)

// Bits of the SSID byte terminating each address group.
const (
	// FlagLast marks the final group of the address field.
	FlagLast = 0x01
	// FlagReserved bits are always sent set.
	FlagReserved = 0x60
	// FlagRepeated is the H bit on a digipeater slot and the C bit on
	// the destination and source groups.
	FlagRepeated = 0x80
	ssidMask     = 0x1e
)

// Address group indices.
const (
	Destination = 0
	Source      = 1
	FirstDigi   = 2
)
