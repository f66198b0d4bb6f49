package kiss

import (
	"bytes"
)

// Encode wraps frame in a KISS frame with the given type byte, escaping
// any framing bytes in the payload.
func Encode(typ byte, frame []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(frame) + len(frame)/8 + 3)
	b.WriteByte(FEND)
	writeEscaped(&b, typ)
	for _, c := range frame {
		writeEscaped(&b, c)
	}
	b.WriteByte(FEND)
	return b.Bytes()
}

// EncodeData wraps an AX.25 frame for transmission on port.
func EncodeData(port int, frame []byte) []byte {
	return Encode(TypeByte(port, CmdData), frame)
}

func writeEscaped(b *bytes.Buffer, c byte) {
	switch c {
	case FEND:
		b.WriteByte(FESC)
		b.WriteByte(TFEND)
	case FESC:
		b.WriteByte(FESC)
		b.WriteByte(TFESC)
	default:
		b.WriteByte(c)
	}
}
