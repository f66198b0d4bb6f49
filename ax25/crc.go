package ax25

const (
	fcsInit = 0xffff
	fcsGood = 0xf0b8
	fcsPoly = 0x8408
)

var fcsTable = func() (t [256]uint16) {
	for i := range t {
		v := uint16(i)
		for b := 0; b < 8; b++ {
			if v&1 != 0 {
				v = (v >> 1) ^ fcsPoly
			} else {
				v >>= 1
			}
		}
		t[i] = v
	}
	return
}()

func fcsUpdate(fcs uint16, b []byte) uint16 {
	for _, c := range b {
		fcs = (fcs >> 8) ^ fcsTable[(fcs^uint16(c))&0xff]
	}
	return fcs
}

// ComputeCRC returns the frame check sequence for b.
func ComputeCRC(b []byte) uint16 {
	return ^fcsUpdate(fcsInit, b)
}

// AddCRC appends the frame check sequence of b to b, low byte first,
// and returns the extended slice.
func AddCRC(b []byte) []byte {
	fcs := ComputeCRC(b)
	return append(b, byte(fcs), byte(fcs>>8))
}

// OkCRC reports whether b ends with a valid frame check sequence.
func OkCRC(b []byte) bool {
	if len(b) < FCSLen {
		return false
	}
	return fcsUpdate(fcsInit, b) == fcsGood
}
