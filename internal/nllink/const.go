package nllink

// Size of struct ifinfomsg.
const ifInfoMsgLen = 16

// Interface flags from struct ifinfomsg.
const (
	FlagUp      = 0x1
	FlagRunning = 0x40
)
