package ax25ipd

import (
	"encoding/binary"

	"github.com/mdlayher/netlink/nlenc"
)

// htons converts a host order uint16 to network order.
func htons(v uint16) uint16 {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return nlenc.Uint16(b)
}
