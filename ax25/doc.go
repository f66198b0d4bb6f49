/*
Package ax25 implements the parts of the AX.25 link layer protocol needed
to relay frames between a radio channel and an IP network.

AX.25 is the link layer protocol used by amateur packet radio.  A frame
starts with an address field made up of 7 byte address groups: the
destination, the source, and up to eight digipeaters.  Each group carries a
callsign of up to six characters, shifted left by one bit, followed by an
SSID byte packing the station's secondary identifier together with the
has-been-repeated and end-of-address-field flags.

Currently package ax25 implements:

 * parsing and formatting of callsigns in both text ("VK2XXX-1") and wire
   form,

 * a length-checked cursor over the address field of a received frame,
   used to find the next station a frame should be relayed to and to mark
   digipeater slots as repeated,

 * the 16 bit frame check sequence (FCS) used by AX.25 and PPP.

Connected mode (windowing, retransmission) is outside the scope of package
ax25: frames are inspected and relayed, never terminated.

Usage

	import (
		"github.com/katalix/go-ax25ipd/ax25"
	)

	# Note we're ignoring errors for brevity.

	src, _ := ax25.ParseCallsign("VK2XXX-1")
	dst, _ := ax25.ParseCallsign("ID")

	# Build a UI frame and protect it with an FCS.
	frame := ax25.NewUIFrame(dst, src, ax25.PIDNoLayer3, []byte("hello"))
	frame = ax25.AddCRC(frame)

	# Later, on receipt...
	if ax25.OkCRC(frame) {
		af, _ := ax25.ParseAddressField(frame[:len(frame)-2])
		next := af.NextAddr()
		fmt.Println(af.Callsign(next))
	}
*/
package ax25
